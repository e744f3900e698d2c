// Package exporter writes the warehouse tables and the raw source CSVs.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// UTF-8 BOM for Excel compatibility and snappy framed output. It also writes the
// raw source tables produced by the generator.
//
// Publisher: Writes dim_users, fct_transactions and fct_funnel in each configured
// format (parquet, csv, xlsx) into a staging directory inside the warehouse
// directory, then renames every file into place once all writes succeeded.
//
// Formatting helpers: null-aware cell formatting shared by the CSV and XLSX
// outputs. Nulls are empty cells; timestamps use TimestampLayout.
//
// Example usage:
//
//	publisher := exporter.NewPublisher(paths, cfg.Output, logger)
//	result, err := publisher.Publish(ctx, runID, tables, manifest)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Files)
package exporter
