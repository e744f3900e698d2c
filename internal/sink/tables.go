package sink

import (
	"fmt"
	"strings"
	"time"

	"funnelcli/internal/exporter"
	"funnelcli/pkg/contracts/domain"
)

// column is one column of a warehouse table in MySQL
type column struct {
	name    string
	sqlType string
}

// table is a warehouse table ready to be replaced in MySQL
type table struct {
	name    string
	columns []column
	rows    [][]any
}

func columns(names []string, types ...string) []column {
	cols := make([]column, len(names))
	for i, name := range names {
		cols[i] = column{name: name, sqlType: types[i]}
	}
	return cols
}

var (
	dimUsersColumns = columns(exporter.DimUsersHeaders,
		"BIGINT NOT NULL", "DATETIME NULL", "VARCHAR(64)", "VARCHAR(64)", "VARCHAR(64)",
		"DATETIME NULL", "DATETIME NULL", "VARCHAR(32) NULL", "BOOLEAN NOT NULL",
		"DATETIME NULL", "VARCHAR(32) NULL", "BOOLEAN NOT NULL",
		"DATETIME NULL", "BIGINT NULL", "DOUBLE NULL", "BOOLEAN NOT NULL",
		"DOUBLE NULL", "DOUBLE NULL", "DOUBLE NULL",
	)

	fctTransactionsColumns = columns(exporter.FctTransactionsHeaders,
		"BIGINT NOT NULL", "DATETIME NULL", "DOUBLE NULL", "VARCHAR(64)", "VARCHAR(64)",
		"VARCHAR(32)", "DATE NULL", "INT NULL",
	)

	fctFunnelColumns = columns(exporter.FctFunnelHeaders,
		"BIGINT NOT NULL", "BIGINT NOT NULL", "BIGINT NOT NULL", "VARCHAR(64)", "DATETIME NULL",
	)
)

func warehouseTables(t *domain.WarehouseTables) []table {
	return []table{
		{name: domain.TableDimUsers, columns: dimUsersColumns, rows: dimUsersRows(t.DimUsers)},
		{name: domain.TableFctTransactions, columns: fctTransactionsColumns, rows: fctTransactionsRows(t.FctTransactions)},
		{name: domain.TableFctFunnel, columns: fctFunnelColumns, rows: fctFunnelRows(t.FctFunnel)},
	}
}

func dimUsersRows(rows []domain.UserDimension) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.UserID, nullTime(r.SignupAt), r.Country, r.Device, r.MarketingChannel,
			nullTime(r.FirstKycStartedAt), nullTime(r.FirstKycCompletedAt), nullString(r.KycStatus), r.HasKycApproved,
			nullTime(r.CardActivatedAt), nullString(r.CardType), r.HasCardActivated,
			nullTime(r.FirstTransactionAt), nullInt(r.TotalTransactions), nullFloat(r.TotalAmountEUR), r.HasTopup,
			nullFloat(r.TimeToKycHours), nullFloat(r.TimeKycToCardHours), nullFloat(r.TimeCardToFirstTxHours),
		})
	}
	return out
}

func fctTransactionsRows(rows []domain.TransactionFact) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		var hour any
		if r.TransactionHour != nil {
			hour = int64(*r.TransactionHour)
		}
		out = append(out, []any{
			r.UserID, nullTime(r.TransactionTime), nullFloat(r.AmountEUR), r.Category, r.MerchantCountry,
			r.TransactionType, nullTime(r.TransactionDate), hour,
		})
	}
	return out
}

func fctFunnelRows(rows []domain.FunnelFact) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.RowIndex, r.UserID, r.StepOrder, r.StepName, nullTime(r.EventTime)})
	}
	return out
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// createTableSQL returns the DDL for t. Existing tables are left alone.
func createTableSQL(t table) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = fmt.Sprintf("`%s` %s", c.name, c.sqlType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (%s)", t.name, strings.Join(defs, ", "))
}

// insertSQL returns a multi-row INSERT for n rows of t
func insertSQL(t table, n int) string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = "`" + c.name + "`"
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = row
	}
	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s", t.name, strings.Join(names, ", "), strings.Join(values, ", "))
}
