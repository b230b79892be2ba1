// Package app wires SupplyPulse together: configuration, logging,
// OpenTelemetry, the service graph and the HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, config.yaml, .env, SUPPLYPULSE_* variables)
//	2. Initialize the global slog logger
//	3. Resolve and create the data, uploads, reports and logs directories
//	4. Install the OpenTelemetry providers and the Prometheus exporter
//	5. Build the dataset, dashboard, session, analysis and report services
//	6. Mount the chi router and create the http.Server
//
// # Usage
//
//	a, err := app.NewApplication(ctx, "")
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Run serves until SIGINT or SIGTERM. While serving, idle sessions are
// swept every config.SessionSweepPeriod. On shutdown in-flight requests
// are drained within Server.ShutdownTimeout and telemetry is flushed.
//
// The app never calls os.Exit; errors are returned to the command.
package app
