package domain

import (
	"time"
)

// KYC outcomes as written by the onboarding service
const (
	KYCStatusApproved = "APPROVED"
	KYCStatusFailed   = "FAILED"
	KYCStatusPending  = "PENDING"
)

// Card types
const (
	CardTypeVirtual  = "Virtual"
	CardTypePhysical = "Physical"
)

// Funnel steps and their step_order
const (
	StepViewedSignup        = "VIEWED_SIGNUP"
	StepStartedRegistration = "STARTED_REGISTRATION"
	StepKycCompleted        = "KYC_COMPLETED"
	StepCardActivated       = "CARD_ACTIVATED"
	StepFirstTopup          = "FIRST_TOPUP"
)

// Raw table names. Each one is read from <name>.csv in the raw directory.
const (
	TableUsers        = "users"
	TableKYC          = "kyc"
	TableCards        = "cards"
	TableTransactions = "transactions"
	TableFunnelEvents = "funnel_events"
)

// RawTableNames lists the five raw sources in load order.
var RawTableNames = []string{
	TableUsers,
	TableKYC,
	TableCards,
	TableTransactions,
	TableFunnelEvents,
}

// User is one row of the users source table.
// A zero SignupAt means the cell was empty.
type User struct {
	UserID           int64     `json:"user_id" csv:"user_id"`
	SignupAt         time.Time `json:"signup_at" csv:"signup_at"`
	Country          string    `json:"country" csv:"country"`
	Device           string    `json:"device" csv:"device"`
	MarketingChannel string    `json:"marketing_channel" csv:"marketing_channel"`
}

// KycAttempt is one KYC verification attempt. A user may have zero or many.
type KycAttempt struct {
	UserID         int64     `json:"user_id" csv:"user_id"`
	KycStartedAt   time.Time `json:"kyc_started_at" csv:"kyc_started_at"`
	KycCompletedAt time.Time `json:"kyc_completed_at" csv:"kyc_completed_at"`
	KycStatus      string    `json:"kyc_status" csv:"kyc_status"`
}

// CardActivation is one card activation event.
type CardActivation struct {
	UserID          int64     `json:"user_id" csv:"user_id"`
	CardActivatedAt time.Time `json:"card_activated_at" csv:"card_activated_at"`
	CardType        string    `json:"card_type" csv:"card_type"`
}

// Transaction is one raw card transaction. AmountEUR keeps the source text
// until the transform coerces it to a number.
type Transaction struct {
	UserID          int64     `json:"user_id" csv:"user_id"`
	TransactionTime time.Time `json:"transaction_time" csv:"transaction_time"`
	AmountEUR       string    `json:"amount_eur" csv:"amount_eur"`
	Category        string    `json:"category" csv:"category"`
	MerchantCountry string    `json:"merchant_country" csv:"merchant_country"`
	TransactionType string    `json:"transaction_type" csv:"transaction_type"`
}

// FunnelEvent is one user-journey step. StepOrder keeps the source text
// until the transform coerces it to an integer.
type FunnelEvent struct {
	UserID    int64     `json:"user_id" csv:"user_id"`
	StepOrder string    `json:"step_order" csv:"step_order"`
	StepName  string    `json:"step_name" csv:"step_name"`
	EventTime time.Time `json:"event_time" csv:"event_time"`
}

// RawTables holds the five source snapshots of a single batch run.
type RawTables struct {
	Users        []User
	KYC          []KycAttempt
	Cards        []CardActivation
	Transactions []Transaction
	Funnel       []FunnelEvent
}

// RowCounts returns the number of rows per raw table name.
func (r *RawTables) RowCounts() map[string]int {
	if r == nil {
		return map[string]int{}
	}
	return map[string]int{
		TableUsers:        len(r.Users),
		TableKYC:          len(r.KYC),
		TableCards:        len(r.Cards),
		TableTransactions: len(r.Transactions),
		TableFunnelEvents: len(r.Funnel),
	}
}
