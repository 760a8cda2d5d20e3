// Package httpapi exposes the availability engine as a JSON API on fiber.
//
// Routes:
//
//	GET    /v1/grid?from=2026-11-01&to=2026-11-30   resolve an explicit range
//	GET    /v1/grid?month=2026-11                   resolve the six-week window of a month
//	POST   /v1/edits/single                         begin a single-day edit
//	POST   /v1/edits/bulk                           begin a bulk edit
//	PATCH  /v1/edits/:id                            change pending values
//	POST   /v1/edits/:id/save                       save and return the fresh grid
//	DELETE /v1/edits/:id                            cancel
//
// Edit sessions live in an in-memory EditRegistry and expire after a period of inactivity.
package httpapi
