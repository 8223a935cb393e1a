// Package harness runs YAML transition scenarios against a real ledger and
// sequencer and checks the outcomes.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	start: 1700000000          # wall clock at the first step (Unix seconds)
//	approval_policy: guarded   # or legacy; default guarded
//	flow:
//	  - as: admin
//	    op: initialize_community
//	    args: { name: Devs, description: developers }
//	  - as: alice
//	    op: join_community
//	    args: { community: "@community:Devs" }
//	  - advance: 2h             # move the clock before the step's op
//	    as: alice
//	    op: cast_vote
//	    args: { poll: "@poll:Devs:0", option_index: 0 }
//	    expect: POLL_EXPIRED    # default OK
//	assertions:
//	  - type: final_state
//	    ref: "@poll:Devs:0"
//	    expect: { vote_counts: [1, 0], total_votes: 1 }
//
// # References
//
// String values starting with "@" are resolved before use:
//
//   - @identity:NAME                   NamedIdentity(NAME)
//   - @community:NAME                  community address
//   - @membership:COMMUNITY:MEMBER     membership address
//   - @poll:COMMUNITY:INDEX            address of the INDEX'th poll
//   - @vote:COMMUNITY:INDEX:VOTER      vote address
//   - @now, @now+N, @now-N             clock reading in Unix seconds (integer)
//
// "@@" escapes a literal leading "@".
//
// # Assertion Types
//
//   - trace_contains: a journal entry with op (and optional as/outcome) exists
//   - trace_order: ops appear in the journal in the given order
//   - trace_count: op (and optional outcome) appears exactly count times
//   - final_state: the record at ref matches expect (subset match)
//   - absent: no record exists at ref
//   - replay: replaying the journal reproduces every outcome and the state
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite store, a manual wall clock that
// moves only on "advance", and sequential request IDs derived from the
// scenario name, so traces are byte-identical across runs and can be
// compared against golden files.
package harness
