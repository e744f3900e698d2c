package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

// Column headers of the raw source tables
var rawHeaders = map[string][]string{
	domain.TableUsers:        {"user_id", "signup_at", "country", "device", "marketing_channel"},
	domain.TableKYC:          {"user_id", "kyc_started_at", "kyc_completed_at", "kyc_status"},
	domain.TableCards:        {"user_id", "card_activated_at", "card_type"},
	domain.TableTransactions: {"user_id", "transaction_time", "amount_eur", "category", "merchant_country", "transaction_type"},
	domain.TableFunnelEvents: {"user_id", "step_order", "step_name", "event_time"},
}

// WriteRawTables writes the five source CSVs into the raw directory, replacing
// existing files. It returns the written paths in load order.
func (w *CSVWriter) WriteRawTables(ctx context.Context, raw *domain.RawTables) ([]string, error) {
	written := make([]string, 0, len(domain.RawTableNames))

	for _, name := range domain.RawTableNames {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		path := filepath.Join(w.paths.RawDir, name+".csv")
		records := rawRecords(raw, name)
		if err := w.WriteCSV(path, WriteOptions{Headers: rawHeaders[name], Records: records}); err != nil {
			return written, errors.NewIOError(fmt.Sprintf("failed to write raw table %s", name), err).
				WithContext("table", name)
		}

		w.logger.InfoContext(ctx, "Wrote raw table",
			slog.String("table", name),
			slog.Int("rows", len(records)),
			slog.String("path", path))
		written = append(written, path)
	}

	return written, nil
}

func rawRecords(raw *domain.RawTables, table string) [][]string {
	var records [][]string
	switch table {
	case domain.TableUsers:
		for _, u := range raw.Users {
			records = append(records, []string{
				formatInt(u.UserID), FormatTimestamp(u.SignupAt), u.Country, u.Device, u.MarketingChannel,
			})
		}
	case domain.TableKYC:
		for _, k := range raw.KYC {
			records = append(records, []string{
				formatInt(k.UserID), FormatTimestamp(k.KycStartedAt), FormatTimestamp(k.KycCompletedAt), k.KycStatus,
			})
		}
	case domain.TableCards:
		for _, c := range raw.Cards {
			records = append(records, []string{
				formatInt(c.UserID), FormatTimestamp(c.CardActivatedAt), c.CardType,
			})
		}
	case domain.TableTransactions:
		for _, tx := range raw.Transactions {
			records = append(records, []string{
				formatInt(tx.UserID), FormatTimestamp(tx.TransactionTime), tx.AmountEUR,
				tx.Category, tx.MerchantCountry, tx.TransactionType,
			})
		}
	case domain.TableFunnelEvents:
		for _, e := range raw.Funnel {
			records = append(records, []string{
				formatInt(e.UserID), e.StepOrder, e.StepName, FormatTimestamp(e.EventTime),
			})
		}
	}
	return records
}
