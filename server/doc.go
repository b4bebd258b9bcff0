// Package server exposes the webhook endpoint that triggers Capture to Sailthru syncs.
//
// Routes:
//   - GET  /      health check, responds "ok"
//   - POST /sync  webhook, a JSON array of {"uuid": "..."} entries
//
// The sync route always responds 200. The webhook sender treats any 200 as delivered,
// so the body ("done", "no webhook payload", "no attributes", "fail (capture)" or
// "fail (sailthru)") is the only signal of what happened.
package server
