// Package http implements the SupplyPulse HTTP API on top of chi.
// Handlers are a thin layer between transport and the services package:
// they parse and validate the request, call a service and render the
// result. Business logic stays in internal/services.
//
// # Routes
//
//	GET    /metrics
//	GET    /api/health
//	GET    /api/health/ready
//	GET    /api/version
//	GET    /api/datasets
//	GET    /api/datasets/{kind}/choices
//	POST   /api/datasets/{kind}/reload
//	POST   /api/datasets/{kind}/upload
//	POST   /api/sessions
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/datasets/{kind}/dashboard
//	GET    /api/sessions/{id}/datasets/{kind}/forecast
//	GET    /api/sessions/{id}/datasets/{kind}/anomalies
//	GET    /api/sessions/{id}/datasets/{kind}/export
//
// # Error Handling
//
// Every failure is written as an RFC 7807 problem document by
// internal/errors. Service sentinels are mapped to statuses in
// NewErrorHandler:
//
//	{
//	    "type": "/errors/session/not-found",
//	    "title": "Session Not Found",
//	    "status": 404,
//	    "detail": "session not found",
//	    "instance": "/api/sessions/abc/datasets/consumption/dashboard",
//	    "trace_id": "..."
//	}
//
// # Middleware
//
// The chain is RequestID, RealIP, OTel, StructuredLogger, Recoverer,
// StripSlashes, SecurityHeaders and CORS. Routes under /api add rate
// limiting and a request deadline.
package http
