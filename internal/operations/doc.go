// Package operations runs the roster pipeline as a sequence of dependent steps.
//
// A run moves through these steps:
//
//   - discover: list the roster document links on the listing page
//   - download: fetch missing documents into the raw directory
//   - read: turn every local document into a normalized table, cache first
//   - clean: join the tables and clean the combined frame
//   - persist: write the snapshot, the joined export and the optional SQLite file
//   - reduce: write the size-reduced export (optional)
//   - publish: upload the distributable export over SFTP (optional)
//
// Core Components:
//
// Manager executes the registered steps in dependency order with per-step
// timeouts and retries for transient network failures. Per-document problems
// never fail a step; they are collected on the run's BatchReport.
//
// Registry holds the steps and sorts them topologically.
//
// OperationState carries the data handed from step to step and the state of
// each step.
//
// Example usage:
//
//	manager, err := operations.NewPipeline(operations.PipelineOptions{
//		Config: cfg,
//		Paths:  paths,
//		Logger: logger,
//	})
//	if err != nil {
//		return err
//	}
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations
