// Package module defines the unit of work executed by an analysis chain.
//
// A Module has an identity (module id and type name), a parameter registry
// and one callback per lifecycle phase:
//
//	Define → PreInitialize → Initialize → BeginRun → Analyze* → EndRun → Finalize
//
// Concrete modules embed Base, which supplies the identity, the registry and
// OK defaults for every callback, and override the phases they need.
//
// Module ids default to the type name. A chain holding two modules of the
// same type must give one of them an explicit id.
package module
