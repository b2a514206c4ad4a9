// Package app wires configuration, logging, telemetry and the roster
// pipeline into one Application.
//
// NewApplication resolves and creates the data directories, removes
// temporary files left by interrupted runs, initializes OpenTelemetry and
// builds the pipeline. When telemetry.listen_addr is set, Run also serves
// the run status over HTTP while the pipeline works.
//
//	application, err := app.NewApplication(cfg, app.Options{})
//	if err != nil {
//	    return err
//	}
//	defer application.Stop(context.Background())
//	report, err := application.Run(ctx)
//
// Initialization errors are returned to the caller; the package never
// exits the process.
package app
