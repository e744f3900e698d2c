package domain

import (
	"time"
)

// Warehouse table names
const (
	TableDimUsers        = "dim_users"
	TableFctTransactions = "fct_transactions"
	TableFctFunnel       = "fct_funnel"
)

// WarehouseTableNames lists the output tables in publish order.
var WarehouseTableNames = []string{
	TableDimUsers,
	TableFctTransactions,
	TableFctFunnel,
}

// UserDimension is one row of dim_users: a user plus the KYC, card and
// transaction summaries left-joined onto it. Nil pointers are nulls.
type UserDimension struct {
	UserID           int64      `json:"user_id" parquet:"user_id"`
	SignupAt         *time.Time `json:"signup_at" parquet:"signup_at,optional"`
	Country          string     `json:"country" parquet:"country"`
	Device           string     `json:"device" parquet:"device"`
	MarketingChannel string     `json:"marketing_channel" parquet:"marketing_channel"`

	FirstKycStartedAt   *time.Time `json:"first_kyc_started_at" parquet:"first_kyc_started_at,optional"`
	FirstKycCompletedAt *time.Time `json:"first_kyc_completed_at" parquet:"first_kyc_completed_at,optional"`
	KycStatus           *string    `json:"kyc_status" parquet:"kyc_status,optional"`
	HasKycApproved      bool       `json:"has_kyc_approved" parquet:"has_kyc_approved"`

	CardActivatedAt  *time.Time `json:"card_activated_at" parquet:"card_activated_at,optional"`
	CardType         *string    `json:"card_type" parquet:"card_type,optional"`
	HasCardActivated bool       `json:"has_card_activated" parquet:"has_card_activated"`

	FirstTransactionAt *time.Time `json:"first_transaction_at" parquet:"first_transaction_at,optional"`
	TotalTransactions  *int64     `json:"total_transactions" parquet:"total_transactions,optional"`
	TotalAmountEUR     *float64   `json:"total_amount_eur" parquet:"total_amount_eur,optional"`
	HasTopup           bool       `json:"has_topup" parquet:"has_topup"`

	TimeToKycHours         *float64 `json:"time_to_kyc_hours" parquet:"time_to_kyc_hours,optional"`
	TimeKycToCardHours     *float64 `json:"time_kyc_to_card_hours" parquet:"time_kyc_to_card_hours,optional"`
	TimeCardToFirstTxHours *float64 `json:"time_card_to_first_tx_hours" parquet:"time_card_to_first_tx_hours,optional"`
}

// TransactionFact is one row of fct_transactions.
// TransactionDate is the midnight of TransactionTime. An empty source amount
// stays null. The exporter has its own parquet layout for this table so the
// date lands in a DATE column.
type TransactionFact struct {
	UserID          int64      `json:"user_id"`
	TransactionTime *time.Time `json:"transaction_time"`
	AmountEUR       *float64   `json:"amount_eur"`
	Category        string     `json:"category"`
	MerchantCountry string     `json:"merchant_country"`
	TransactionType string     `json:"transaction_type"`
	TransactionDate *time.Time `json:"transaction_date"`
	TransactionHour *int32     `json:"transaction_hour"`
}

// FunnelFact is one row of fct_funnel.
type FunnelFact struct {
	RowIndex  int64      `json:"row_index" parquet:"row_index"`
	UserID    int64      `json:"user_id" parquet:"user_id"`
	StepOrder int64      `json:"step_order" parquet:"step_order"`
	StepName  string     `json:"step_name" parquet:"step_name"`
	EventTime *time.Time `json:"event_time" parquet:"event_time,optional"`
}

// WarehouseTables is the output of one transform run.
type WarehouseTables struct {
	DimUsers        []UserDimension
	FctTransactions []TransactionFact
	FctFunnel       []FunnelFact
}

// RowCounts returns the number of rows per warehouse table name.
func (w *WarehouseTables) RowCounts() map[string]int {
	if w == nil {
		return map[string]int{}
	}
	return map[string]int{
		TableDimUsers:        len(w.DimUsers),
		TableFctTransactions: len(w.FctTransactions),
		TableFctFunnel:       len(w.FctFunnel),
	}
}

// NullableTime returns nil for the zero time, else a pointer to a copy of t.
func NullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
