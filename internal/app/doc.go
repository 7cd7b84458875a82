// Package app wires a weekly impedance report run from the configuration.
//
// # Initialization Flow
//
//	1. Load and validate configuration (file, then IMPEDANCE_* environment)
//	2. Initialize logging and telemetry
//	3. Check the input directory and output root
//	4. Build the parser, analyzer, renderer, exporter, archiver and notifier
//	5. Assemble the operations pipeline
//
// # Usage
//
//	a, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	defer a.Shutdown(context.Background())
//	report, err := a.Run(ctx)
//
// # Error Handling
//
// All errors are returned to the caller. The app does not call os.Exit,
// leaving the exit code to the main function.
package app
