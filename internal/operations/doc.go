// Package operations runs the weekly report as a sequence of steps.
//
// Manager executes steps strictly in order, each under its own span and
// timeout. The first failing step stops the run, the remaining steps are
// marked skipped and the error is returned as an OperationError naming the
// step.
//
// Pipeline wires the concrete steps:
//
//	discover -> notify_empty                                  (no input files)
//	discover -> load -> render -> summarize -> stage -> compress -> finalize -> notify
//
// Input files are copied into the week folder before compression and only
// removed after the archive exists, so a failed run can simply be repeated.
//
// Example usage:
//
//	manager := operations.NewManager(operations.NewConfig(), operations.NewOperationTracer(providers), logger)
//	pipeline := operations.NewPipeline(deps, cfg.Paths, manager, nil, logger)
//	report, err := pipeline.Run(ctx)
package operations
