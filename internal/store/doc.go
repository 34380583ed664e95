// Package store provides the SQLite-backed run journal.
//
// Each run of a chain is recorded as:
//   - Runs: id, chain file, loop count, replica count, final status and
//     event totals
//   - Run parameters: the value of every module parameter at the start of
//     the run, as canonical JSON
//   - Run counters: per-module Analyze outcomes, summed over replicas
//
// Writes use ON CONFLICT DO NOTHING, so recording the same run twice
// leaves the first record in place. Reads order parameters and counters
// by chain position, and runs by start time with the id as tie-breaker.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Parameters and counters must reference a run
package store
