// Package httpapi exposes the session engine over HTTP under /api/v1.
//
// Errors are JSON objects of the form {"detail": "..."}. Token and credential failures
// map to 401, an exhausted login budget to 429 and backend outages to 503 with a
// Retry-After header.
package httpapi
