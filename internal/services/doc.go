// Package services implements the business logic layer of SupplyPulse.
// It sits between the HTTP handlers and the pipeline packages so that the
// handlers only translate requests and errors.
//
// # Services
//
//	DatasetService    resolves each dataset kind to a workbook, archive,
//	                  upload or Google Sheets range and loads it through
//	                  the shared DatasetCache
//	DashboardService  filters a dataset and computes the sections of its
//	                  dashboard, running forecast and anomaly passes
//	                  concurrently
//	SessionStore      owns the client sessions; each Session caches the
//	                  results it computed, keyed by dataset fingerprint,
//	                  filter and list size
//	AnalysisService   combines the three for the API
//	HealthService     liveness, readiness and version information
//
// # Caching
//
// Normalized datasets are shared read-only between sessions and are
// replaced wholesale on reload or upload. Computed results are never
// shared: two sessions asking for the same dashboard each build it once.
//
// # Errors
//
// Services return wrapped sentinel errors (ErrUnknownDataset,
// ErrSessionNotFound, ...) and the typed pipeline errors of the domain
// package unchanged, so callers map them with errors.Is and errors.As.
package services
