// Package chaindef loads chain definitions from YAML, CUE or HCL files and
// replays them onto a chain.Builder.
//
// All three formats describe the same structure:
//
//	num_loop: 1000          # optional
//	display_period: 100     # optional
//	modules:
//	  - type: MyVectorModule
//	    id: vec             # optional, defaults to type
//	    on: true            # optional
//	    aliases: [v]        # optional
//	    parameters: {...}   # routed like Builder.WithParameters
//	    push:               # record-vector parameter -> records
//	      my_vector: [{ID: 1, x: 0.5}]
//	    insert:             # record-map parameter -> key -> record
//	      my_map: {north: {ID: 7}}
//
// Each loader turns its input into a generic tree (string-keyed maps,
// []any, string, bool, int64, float64) that is then decoded strictly:
// unknown keys are errors.
package chaindef
