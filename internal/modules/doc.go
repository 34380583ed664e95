// Package modules provides the stock modules shipped with anlnext: the
// parameter showcase modules (MyModule, MyVectorModule, MyMapModule), a
// toy two-detector simulation (GenerateEvents, FillHistogram) and test
// helpers (QuitAt, Recorder).
//
// Every module declares its parameters in its constructor, so a chain
// definition can be validated and printed without running the chain.
package modules
