package dataprocessing

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

const utf8BOM = "\ufeff"

// timestampLayouts are tried in order. Layouts without a zone parse as UTC;
// fractional seconds are accepted after any seconds field.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Loader reads the five raw source tables from a raw directory.
type Loader struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewLoader creates a loader over paths.RawDir.
func NewLoader(paths *config.Paths, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{paths: paths, logger: logger}
}

// Load reads users, kyc, cards, transactions and funnel_events. Every table
// is required; the first failure aborts the load.
func (l *Loader) Load(ctx context.Context) (*domain.RawTables, error) {
	raw := &domain.RawTables{}

	for _, name := range domain.RawTableNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, err := l.readTable(name)
		if err != nil {
			return nil, err
		}

		switch name {
		case domain.TableUsers:
			raw.Users, err = parseUsers(table)
		case domain.TableKYC:
			raw.KYC, err = parseKYC(table)
		case domain.TableCards:
			raw.Cards, err = parseCards(table)
		case domain.TableTransactions:
			raw.Transactions, err = parseTransactions(table)
		case domain.TableFunnelEvents:
			raw.Funnel, err = parseFunnel(table)
		}
		if err != nil {
			return nil, err
		}

		l.logger.InfoContext(ctx, "Loaded raw table",
			slog.String("table", name),
			slog.Int("rows", len(table.rows)))
	}

	return raw, nil
}

// csvTable is a raw CSV file with its header indexed by column name.
type csvTable struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func (l *Loader) readTable(name string) (*csvTable, error) {
	path := l.paths.GetRawPath(name)

	file, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewMissingSourceError(name, path, err)
		}
		return nil, errors.NewAppError(errors.ErrTypeIO, fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	return readCSV(name, file)
}

func readCSV(name string, r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewSchemaError(name, "*", "file has no header row", nil)
	}
	if err != nil {
		return nil, errors.NewSchemaError(name, "*", "malformed header", err)
	}

	table := &csvTable{name: name, columns: make(map[string]int, len(header))}
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		table.columns[strings.TrimSpace(col)] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewSchemaError(name, "*", "malformed row", err)
		}
		table.rows = append(table.rows, record)
	}

	return table, nil
}

// require returns the column indexes in the order given, or a schema error
// naming the first missing column.
func (t *csvTable) require(columns ...string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, col := range columns {
		pos, ok := t.columns[col]
		if !ok {
			return nil, errors.NewSchemaError(t.name, col, "column not found", nil)
		}
		idx[i] = pos
	}
	return idx, nil
}

// cell returns the trimmed value or "" for short rows.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// line numbers are 1-based and count the header
func lineOf(rowIdx int) int {
	return rowIdx + 2
}

func (t *csvTable) userID(row []string, idx, rowIdx int) (int64, error) {
	value := cell(row, idx)
	id, err := parseInteger(value)
	if err != nil {
		return 0, errors.NewSchemaError(t.name, "user_id", fmt.Sprintf("line %d: invalid user_id %q", lineOf(rowIdx), value), err).
			WithContext("line", lineOf(rowIdx))
	}
	return id, nil
}

func (t *csvTable) timestamp(row []string, idx, rowIdx int, column string) (time.Time, error) {
	value := cell(row, idx)
	ts, err := ParseTimestamp(value)
	if err != nil {
		return time.Time{}, errors.NewSchemaError(t.name, column, fmt.Sprintf("line %d: unparseable timestamp %q", lineOf(rowIdx), value), err).
			WithContext("line", lineOf(rowIdx))
	}
	return ts, nil
}

// ParseTimestamp parses a timezone-naive timestamp. Values carrying an offset
// are converted to UTC and the zone is dropped. An empty value is the zero
// time, which the pipeline treats as null.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "NaT") {
		return time.Time{}, nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseInteger accepts integer text and integral float text such as "3.0".
func parseInteger(value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%q is not an integral value", value)
	}
	return int64(f), nil
}

func parseUsers(t *csvTable) ([]domain.User, error) {
	idx, err := t.require("user_id", "signup_at", "country", "device", "marketing_channel")
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := t.userID(row, idx[0], i)
		if err != nil {
			return nil, err
		}
		signup, err := t.timestamp(row, idx[1], i, "signup_at")
		if err != nil {
			return nil, err
		}
		users = append(users, domain.User{
			UserID:           id,
			SignupAt:         signup,
			Country:          cell(row, idx[2]),
			Device:           cell(row, idx[3]),
			MarketingChannel: cell(row, idx[4]),
		})
	}
	return users, nil
}

func parseKYC(t *csvTable) ([]domain.KycAttempt, error) {
	idx, err := t.require("user_id", "kyc_started_at", "kyc_completed_at", "kyc_status")
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.KycAttempt, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := t.userID(row, idx[0], i)
		if err != nil {
			return nil, err
		}
		started, err := t.timestamp(row, idx[1], i, "kyc_started_at")
		if err != nil {
			return nil, err
		}
		completed, err := t.timestamp(row, idx[2], i, "kyc_completed_at")
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, domain.KycAttempt{
			UserID:         id,
			KycStartedAt:   started,
			KycCompletedAt: completed,
			KycStatus:      cell(row, idx[3]),
		})
	}
	return attempts, nil
}

func parseCards(t *csvTable) ([]domain.CardActivation, error) {
	idx, err := t.require("user_id", "card_activated_at", "card_type")
	if err != nil {
		return nil, err
	}

	cards := make([]domain.CardActivation, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := t.userID(row, idx[0], i)
		if err != nil {
			return nil, err
		}
		activated, err := t.timestamp(row, idx[1], i, "card_activated_at")
		if err != nil {
			return nil, err
		}
		cards = append(cards, domain.CardActivation{
			UserID:          id,
			CardActivatedAt: activated,
			CardType:        cell(row, idx[2]),
		})
	}
	return cards, nil
}

func parseTransactions(t *csvTable) ([]domain.Transaction, error) {
	idx, err := t.require("user_id", "transaction_time", "amount_eur", "category", "merchant_country", "transaction_type")
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := t.userID(row, idx[0], i)
		if err != nil {
			return nil, err
		}
		at, err := t.timestamp(row, idx[1], i, "transaction_time")
		if err != nil {
			return nil, err
		}
		txs = append(txs, domain.Transaction{
			UserID:          id,
			TransactionTime: at,
			AmountEUR:       cell(row, idx[2]),
			Category:        cell(row, idx[3]),
			MerchantCountry: cell(row, idx[4]),
			TransactionType: cell(row, idx[5]),
		})
	}
	return txs, nil
}

func parseFunnel(t *csvTable) ([]domain.FunnelEvent, error) {
	idx, err := t.require("user_id", "step_order", "step_name", "event_time")
	if err != nil {
		return nil, err
	}

	events := make([]domain.FunnelEvent, 0, len(t.rows))
	for i, row := range t.rows {
		id, err := t.userID(row, idx[0], i)
		if err != nil {
			return nil, err
		}
		at, err := t.timestamp(row, idx[3], i, "event_time")
		if err != nil {
			return nil, err
		}
		events = append(events, domain.FunnelEvent{
			UserID:    id,
			StepOrder: cell(row, idx[1]),
			StepName:  cell(row, idx[2]),
			EventTime: at,
		})
	}
	return events, nil
}
