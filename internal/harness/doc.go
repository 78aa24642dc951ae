// Package harness replays stop-hook scenarios against the real orchestrator.
//
// A scenario is a YAML file describing a starting configuration, an
// optional seeded state record and a sequence of steps. Each step may move
// the clock, change the transcript mtime and then deliver one stop event.
// The harness records what the hook wrote to stdout together with the
// evaluation outcome, checks the step's expectations and, optionally,
// compares the whole trace with a golden file.
//
// # Scenario Format
//
//	name: trial_fires_early
//	description: "Trial thresholds apply once the window opens"
//	start_ms: 1700000000000
//	config:
//	  trial_mode: true
//	  follow_up_message: consolidate
//	initial_state:
//	  turns_since_last_run: 2
//	  last_run_minutes_ago: 30
//	steps:
//	  - advance: 20m
//	    transcript_mtime_ms: 1700000001000
//	    event:
//	      generation_id: g1
//	      status: completed
//	      loop_count: 0
//	    expect:
//	      fired: true
//	      reason: fired
//	      turns: 0
//	      trial_phase: active
//	final_state:
//	  turns_since_last_run: 0
//	  trial_started: true
//
// The config block accepts the same keys as the CUE config file. Steps may
// carry a raw input string instead of an event to exercise malformed
// payloads.
//
// # Deterministic Testing
//
// Every run uses a testutil.FakeClock starting at start_ms, sequential run
// ids, an in-memory state store and static transcript mtimes. Nothing
// touches the filesystem, so traces are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/trial.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
