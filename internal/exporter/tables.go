package exporter

import (
	"funnelcli/pkg/contracts/domain"
)

// Column headers of the warehouse tables, in file order.
var (
	DimUsersHeaders = []string{
		"user_id", "signup_at", "country", "device", "marketing_channel",
		"first_kyc_started_at", "first_kyc_completed_at", "kyc_status", "has_kyc_approved",
		"card_activated_at", "card_type", "has_card_activated",
		"first_transaction_at", "total_transactions", "total_amount_eur", "has_topup",
		"time_to_kyc_hours", "time_kyc_to_card_hours", "time_card_to_first_tx_hours",
	}

	FctTransactionsHeaders = []string{
		"user_id", "transaction_time", "amount_eur", "category", "merchant_country",
		"transaction_type", "transaction_date", "transaction_hour",
	}

	FctFunnelHeaders = []string{
		"row_index", "user_id", "step_order", "step_name", "event_time",
	}
)

// tableData is one warehouse table ready to be written in any format.
type tableData struct {
	name    string
	headers []string
	rows    int
	records func() [][]string
	parquet func(path string) error
}

func warehouseTables(t *domain.WarehouseTables) []tableData {
	return []tableData{
		{
			name:    domain.TableDimUsers,
			headers: DimUsersHeaders,
			rows:    len(t.DimUsers),
			records: func() [][]string { return dimUsersRecords(t.DimUsers) },
			parquet: func(path string) error { return writeParquet(path, t.DimUsers) },
		},
		{
			name:    domain.TableFctTransactions,
			headers: FctTransactionsHeaders,
			rows:    len(t.FctTransactions),
			records: func() [][]string { return fctTransactionsRecords(t.FctTransactions) },
			parquet: func(path string) error { return writeParquet(path, transactionRows(t.FctTransactions)) },
		},
		{
			name:    domain.TableFctFunnel,
			headers: FctFunnelHeaders,
			rows:    len(t.FctFunnel),
			records: func() [][]string { return fctFunnelRecords(t.FctFunnel) },
			parquet: func(path string) error { return writeParquet(path, t.FctFunnel) },
		},
	}
}

func dimUsersRecords(rows []domain.UserDimension) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			formatInt(r.UserID),
			formatNullableTime(r.SignupAt),
			r.Country,
			r.Device,
			r.MarketingChannel,
			formatNullableTime(r.FirstKycStartedAt),
			formatNullableTime(r.FirstKycCompletedAt),
			formatNullableString(r.KycStatus),
			formatBool(r.HasKycApproved),
			formatNullableTime(r.CardActivatedAt),
			formatNullableString(r.CardType),
			formatBool(r.HasCardActivated),
			formatNullableTime(r.FirstTransactionAt),
			formatNullableInt(r.TotalTransactions),
			formatNullableFloat(r.TotalAmountEUR),
			formatBool(r.HasTopup),
			formatNullableFloat(r.TimeToKycHours),
			formatNullableFloat(r.TimeKycToCardHours),
			formatNullableFloat(r.TimeCardToFirstTxHours),
		})
	}
	return records
}

func fctTransactionsRecords(rows []domain.TransactionFact) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			formatInt(r.UserID),
			formatNullableTime(r.TransactionTime),
			formatNullableFloat(r.AmountEUR),
			r.Category,
			r.MerchantCountry,
			r.TransactionType,
			formatNullableDate(r.TransactionDate),
			formatNullableHour(r.TransactionHour),
		})
	}
	return records
}

func fctFunnelRecords(rows []domain.FunnelFact) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			formatInt(r.RowIndex),
			formatInt(r.UserID),
			formatInt(r.StepOrder),
			r.StepName,
			formatNullableTime(r.EventTime),
		})
	}
	return records
}
