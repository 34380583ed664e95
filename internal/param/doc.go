// Package param implements the typed parameter model used by analysis modules.
//
// A parameter value is one of a closed set of kinds:
//
//	bool, int, double, string          scalars
//	2-vector, 3-vector                 fixed tuples of reals
//	vector<int>, vector<double>,
//	vector<string>                     homogeneous dynamic vectors
//	vector                             ordered list of records
//	map                                string-keyed map of records
//
// Record containers carry a Schema: an ordered list of field names with a
// default value per field. The default fixes the field kind, so a field may
// itself be a record container and nesting is recursive.
//
// Values are owned by a Registry and are only mutated through it. Every read
// returns a deep copy.
//
// # Reflection
//
// A Parameter exposes a cursor-based reflection protocol (TypeName,
// SizeOfContainer, MapKeyList, RetrieveFromContainer, NumValueElements,
// ValueElementInfo). GetValue is a generic reader built only on that
// protocol; it reconstructs any parameter into plain Go values without
// knowing record schemas in advance.
//
// Schemas are acyclic by construction (a schema holds values, values hold
// schemas, and nothing ever points back). Recursion depth is bounded by
// schema depth and is not otherwise guarded.
package param
