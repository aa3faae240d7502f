// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - POST /api/reservations: admits a single reservation. Body: the
//     `reservationRequest` payload defined in reservation_handler.go. The
//     response carries the persisted reservation including its confirmation
//     code and initial pending status.
//   - POST /api/reservations/{id}/cancel: cancels a reservation on behalf of
//     the acting user. Cancelling an already cancelled reservation succeeds
//     without changing anything.
//   - POST /api/reservations/{id}/confirm: confirms a pending reservation on
//     behalf of an approver.
//   - GET /api/resources/{id}/availability?start=...&end=...: reports whether
//     the resource is free over the half-open window [start, end).
//   - GET /api/users/{id}/reservations/active: lists the user's pending and
//     confirmed reservations that have not yet ended, ordered by start time.
//   - POST /api/reservations/recurring: creates a recurring pattern and admits
//     each expanded occurrence, reporting admitted and skipped occurrences
//     separately.
//   - POST /api/reservations/recurring/{id}/cancel?future=true: cancels the
//     reservations linked to a pattern, optionally only the ones that have
//     not started yet.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
