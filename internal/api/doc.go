// Package api provides the optional admin HTTP server.
//
// Routes:
//
//	GET /api/status   pool statistics and worker ids as JSON
//	GET /api/metrics  connection metrics snapshot as JSON
//	    /metrics      Prometheus exposition
//	    /ws           websocket stream of pool and server events,
//	                  plus a status message every second
//
// The admin server only reads pool state; it never submits jobs.
package api
