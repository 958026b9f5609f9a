// Package api implements the HTTP REST API and WebSocket server for Autofill Core.
//
// This package provides:
//   - REST endpoints for step authoring (CRUD, duplicate, next order)
//   - Replay runs: start (async or ?wait=true) and result history
//   - Locator generation from saved HTML
//   - Audit trail of step edits and run requests
//   - WebSocket hub relaying run progress events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Routes
//
//	GET    /api/v1/health
//	GET    /api/v1/metrics
//	GET    /api/v1/steps?website_id=
//	POST   /api/v1/steps
//	GET    /api/v1/steps/{id}
//	PATCH  /api/v1/steps/{id}
//	DELETE /api/v1/steps/{id}
//	POST   /api/v1/steps/{id}/duplicate
//	GET    /api/v1/websites/{id}/next-order
//	GET    /api/v1/websites/{id}/runs?limit=
//	POST   /api/v1/websites/{id}/runs?wait=true
//	GET    /api/v1/runs/{id}
//	GET    /api/v1/owners/{id}/runs?limit=
//	GET    /api/v1/owners/{id}/runs/latest
//	POST   /api/v1/locators
//	GET    /api/v1/audit?action=&entity_type=&website_id=&limit=&offset=
//	GET    /api/v1/ws             (websocket.path)
//
// # WebSocket
//
// Clients send {"type":"subscribe","payload":{"channels":["run.*"]}} and
// receive an "event" message per run event: run.started,
// run.step_completed, run.step_failed and run.finished.
package api
