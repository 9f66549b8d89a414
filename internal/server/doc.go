// Package server exposes the sweep pipeline to other programs, over HTTP and
// over the MCP (Model Context Protocol) stdio transport.
//
// # HTTP
//
// Handler serves a small JSON API:
//   - POST /api/perturb: run a sweep described by a pipeline.Request
//   - POST /api/aukus: run a sweep described by an AUKUS dataset record and
//     answer with one record per produced dataset
//   - GET /api/runs: list recorded runs, newest first (?limit=N)
//   - GET /api/runs/{id}: one run with its steps
//   - GET /healthz: liveness probe
//
// Errors are returned as {"detail": "..."}. Configuration problems, dataset
// integrity failures, missing required metadata, duplicate step labels and
// malformed requests are client errors (400). Unknown runs are 404 and
// anything else is 500.
//
// # MCP
//
// Run speaks JSON-RPC 2.0 over stdio, one request per line, and answers:
//   - initialize: protocol handshake
//   - tools/list: enumerate available tools
//   - tools/call: execute a tool with arguments
//   - ping: health check
//
// Tools:
//   - sweep_perturb: run a sweep (same arguments as POST /api/perturb)
//   - sweep_labels: list the step labels a config file would produce
//   - sweep_default_config: return, or write, the default sweep config
//   - sweep_runs: list recorded runs
//
// Tool failures are JSON-RPC errors with code -32000 and the same detail
// text the HTTP API would return as data.
//
// # Usage
//
//	runner := &pipeline.Runner{Store: store, Workers: 4}
//	srv := server.New(runner)
//	http.ListenAndServe(":8080", srv.Handler())
package server
