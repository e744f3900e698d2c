package exporter

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"funnelcli/pkg/contracts/domain"
)

const secondsPerDay = 24 * 60 * 60

// transactionRow is the parquet layout of fct_transactions. transaction_date
// is a DATE column: days since the Unix epoch.
type transactionRow struct {
	UserID          int64      `parquet:"user_id"`
	TransactionTime *time.Time `parquet:"transaction_time,optional"`
	AmountEUR       *float64   `parquet:"amount_eur,optional"`
	Category        string     `parquet:"category"`
	MerchantCountry string     `parquet:"merchant_country"`
	TransactionType string     `parquet:"transaction_type"`
	TransactionDate *int32     `parquet:"transaction_date,optional,date"`
	TransactionHour *int32     `parquet:"transaction_hour,optional"`
}

func transactionRows(facts []domain.TransactionFact) []transactionRow {
	rows := make([]transactionRow, len(facts))
	for i, f := range facts {
		rows[i] = transactionRow{
			UserID:          f.UserID,
			TransactionTime: f.TransactionTime,
			AmountEUR:       f.AmountEUR,
			Category:        f.Category,
			MerchantCountry: f.MerchantCountry,
			TransactionType: f.TransactionType,
			TransactionHour: f.TransactionHour,
		}
		if f.TransactionDate != nil {
			days := int32(f.TransactionDate.Unix() / secondsPerDay)
			rows[i].TransactionDate = &days
		}
	}
	return rows
}

// writeParquet writes rows as a snappy compressed parquet file. The schema is
// derived from the row type's parquet tags; pointer fields are optional columns.
func writeParquet[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](file, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync parquet file: %w", err)
	}
	return file.Close()
}
