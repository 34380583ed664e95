// Package harness runs scenario files against the reference engine.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: quit_at_event
//	description: "QuitAt ends the loop after its event"
//	num_loop: 10          # overrides chain.num_loop
//	parallel: 1
//	chain:
//	  modules:
//	    - type: QuitAt
//	      parameters: { quit_index: 6 }
//	expect:
//	  status: ok          # or failed
//	  failed_phase: ""    # e.g. Initialize, with status failed
//	  failed_status: ""   # e.g. AS_QUIT_ERROR
//	  parameters:
//	    QuitAt: { quit_index: 6 }
//	  counters:
//	    put: 7
//	    get: 6
//	    modules:
//	      QuitAt: { entry: 7, ok: 6, quit: 1 }
//	  flags:
//	    "GenerateEvents:Detector1": 0
//
// The chain block has the shape of a YAML chain file. Expectations other
// than status are subset matches. Parameter values are compared by their
// canonical JSON.
//
// # Deterministic Testing
//
// Every scenario runs with the fixed run id "scenario-{name}" and records
// itself in an in-memory run journal; counters in the Result are read back
// from the journal. Golden files under testdata/golden hold the canonical
// JSON of a Result and can be compared with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/quit_at.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
