// Package operations runs the ETL as a small step pipeline.
//
// Core components:
//
// Manager: runs the registered steps in dependency order, records every step
// in the run manifest, emits spans and stage metrics, and stops at the first
// failure, skipping every step that depends on it.
//
// Step: a single unit of work. The standard steps are load, dim_users, facts,
// persist and, when a SQL warehouse is configured, sink.
//
// Registry: registration and topological ordering of steps.
//
// OperationState: the run state. Steps pass the raw tables, the warehouse
// tables and the publish result to each other through typed fields.
//
// RunManifest: the run description published as manifest.json.
//
// Example usage:
//
//	registry, err := operations.NewPipelineRegistry(cfg, operations.StageDeps{
//	    Loader:    dataprocessing.NewLoader(paths, logger),
//	    Publisher: exporter.NewPublisher(paths, appCfg.Output, logger),
//	    Tracer:    tracer,
//	    Logger:    logger,
//	})
//	manager := operations.NewManager(registry, cfg, tracer, logger)
//	manager.SetProgress(func(line string) { fmt.Println(line) })
//	state, err := manager.Execute(ctx)
package operations
