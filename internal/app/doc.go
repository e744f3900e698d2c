// Package app is the composition root of the command line tools.
//
// It loads the configuration, initializes logging and telemetry, and builds
// the loader, publisher and optional MySQL sink the pipeline runs with.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, environment)
//	2. Resolve paths against the executable directory
//	3. Initialize the logger and OpenTelemetry
//	4. Build the pipeline collaborators
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    ...
//	}
//	defer application.Close(ctx)
//	state, err := application.RunETL(ctx)
//
// The package never calls os.Exit; the commands decide the exit code.
package app
