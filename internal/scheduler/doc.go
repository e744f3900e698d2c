// Package scheduler triggers the ETL once a day and retries failed runs.
package scheduler
