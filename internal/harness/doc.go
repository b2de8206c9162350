// Package harness provides conformance testing for query plans.
//
// The harness compiles a CUE entity model, seeds an in-memory store,
// runs a query plan through the full pipeline and validates the generated
// query and its results.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../models/shop
//	seed:
//	  Customers:
//	    - {Id: 44, Name: Ann, Status: Active}
//	plan:
//	  entity: Customer
//	  parameters: {id: int}
//	  where: {eq: [{prop: Id}, {param: id}]}
//	parameters:
//	  id: 44
//	expect:
//	  count: 1
//	  query: |
//	    SELECT c.doc
//	    FROM "Customers" AS c
//	    WHERE (json_extract(c.doc, '$.Id') = @p0)
//	assertions:
//	  - type: result_contains
//	    where: {Name: Ann}
//	  - type: stored_document
//	    collection: Customers
//	    id: "44"
//	    expect: {Status: Active}
//
// The plan uses the planspec format. An expect clause with error inverts
// the run: the plan must fail with a matching message.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - result_contains: Verifies some result document matches the given fields
//   - result_order: Verifies a field's values across the results, in order
//   - result_count: Verifies exactly N result documents match
//   - query_contains: Verifies the generated query contains a fragment
//   - stored_document: Reads a document back and verifies expected values
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store. Seeded
// documents of keyed entities are stored under their key; others get
// sequential IDs, and each run uses a fixed query ID. Snapshots of the
// query, its parameters and the results serialize as canonical JSON, so
// golden files are stable across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/customer_by_id.yaml")
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
