package dataprocessing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

const secondsPerHour = 3600

// kycSummary, cardSummary and txSummary are the per-user aggregates merged
// onto the users table.
type kycSummary struct {
	firstStarted   time.Time
	firstCompleted time.Time
	status         string
}

type cardSummary struct {
	firstActivated time.Time
	cardType       string
}

type txSummary struct {
	firstAt time.Time
	count   int64
	total   decimal.Decimal
}

// BuildDimUsers produces one dim_users row per input user row.
//
// Each related table is stably sorted on its primary time column (nulls last)
// and collapsed per user_id: first_* columns take the minimum non-null time,
// kyc_status and card_type take the last non-empty value in that order. The
// status is therefore the one of the most recently started attempt, not the
// best outcome. Related rows whose user_id has no user are ignored.
func BuildDimUsers(users []domain.User, kyc []domain.KycAttempt, cards []domain.CardActivation, transactions []domain.Transaction) ([]domain.UserDimension, error) {
	kycByUser := summarizeKYC(kyc)
	cardsByUser := summarizeCards(cards)
	txByUser, err := summarizeTransactions(transactions)
	if err != nil {
		return nil, err
	}

	dim := make([]domain.UserDimension, 0, len(users))
	for _, u := range users {
		row := domain.UserDimension{
			UserID:           u.UserID,
			SignupAt:         domain.NullableTime(u.SignupAt),
			Country:          u.Country,
			Device:           u.Device,
			MarketingChannel: u.MarketingChannel,
		}

		if s, ok := kycByUser[u.UserID]; ok {
			row.FirstKycStartedAt = domain.NullableTime(s.firstStarted)
			row.FirstKycCompletedAt = domain.NullableTime(s.firstCompleted)
			row.KycStatus = nullableString(s.status)
			row.HasKycApproved = s.status == domain.KYCStatusApproved
		}

		if s, ok := cardsByUser[u.UserID]; ok {
			row.CardActivatedAt = domain.NullableTime(s.firstActivated)
			row.CardType = nullableString(s.cardType)
			row.HasCardActivated = row.CardActivatedAt != nil
		}

		if s, ok := txByUser[u.UserID]; ok {
			count := s.count
			total := s.total.InexactFloat64()
			row.FirstTransactionAt = domain.NullableTime(s.firstAt)
			row.TotalTransactions = &count
			row.TotalAmountEUR = &total
			row.HasTopup = row.FirstTransactionAt != nil
		}

		row.TimeToKycHours = hoursBetween(row.SignupAt, row.FirstKycCompletedAt)
		row.TimeKycToCardHours = hoursBetween(row.FirstKycCompletedAt, row.CardActivatedAt)
		row.TimeCardToFirstTxHours = hoursBetween(row.CardActivatedAt, row.FirstTransactionAt)

		dim = append(dim, row)
	}

	return dim, nil
}

func summarizeKYC(kyc []domain.KycAttempt) map[int64]*kycSummary {
	sorted := sortedByTime(kyc, func(k domain.KycAttempt) time.Time { return k.KycStartedAt })

	out := make(map[int64]*kycSummary)
	for _, k := range sorted {
		s, ok := out[k.UserID]
		if !ok {
			s = &kycSummary{}
			out[k.UserID] = s
		}
		s.firstStarted = minTime(s.firstStarted, k.KycStartedAt)
		s.firstCompleted = minTime(s.firstCompleted, k.KycCompletedAt)
		if k.KycStatus != "" {
			s.status = k.KycStatus
		}
	}
	return out
}

func summarizeCards(cards []domain.CardActivation) map[int64]*cardSummary {
	sorted := sortedByTime(cards, func(c domain.CardActivation) time.Time { return c.CardActivatedAt })

	out := make(map[int64]*cardSummary)
	for _, c := range sorted {
		s, ok := out[c.UserID]
		if !ok {
			s = &cardSummary{}
			out[c.UserID] = s
		}
		s.firstActivated = minTime(s.firstActivated, c.CardActivatedAt)
		if c.CardType != "" {
			s.cardType = c.CardType
		}
	}
	return out
}

// summarizeTransactions counts rows with a transaction time and sums every
// non-empty amount exactly.
func summarizeTransactions(transactions []domain.Transaction) (map[int64]*txSummary, error) {
	out := make(map[int64]*txSummary)
	for _, tx := range transactions {
		amount, ok, err := parseAmount(tx.AmountEUR)
		if err != nil {
			return nil, err
		}

		s, exists := out[tx.UserID]
		if !exists {
			s = &txSummary{total: decimal.Zero}
			out[tx.UserID] = s
		}
		s.firstAt = minTime(s.firstAt, tx.TransactionTime)
		if !tx.TransactionTime.IsZero() {
			s.count++
		}
		if ok {
			s.total = s.total.Add(amount)
		}
	}
	return out, nil
}

// BuildFctTransactions converts transactions 1:1 into fct_transactions rows,
// adding the calendar date and hour of each transaction.
func BuildFctTransactions(transactions []domain.Transaction) ([]domain.TransactionFact, error) {
	facts := make([]domain.TransactionFact, 0, len(transactions))
	for _, tx := range transactions {
		amount, ok, err := parseAmount(tx.AmountEUR)
		if err != nil {
			return nil, err
		}

		fact := domain.TransactionFact{
			UserID:          tx.UserID,
			TransactionTime: domain.NullableTime(tx.TransactionTime),
			Category:        tx.Category,
			MerchantCountry: tx.MerchantCountry,
			TransactionType: tx.TransactionType,
		}
		if ok {
			f := amount.InexactFloat64()
			fact.AmountEUR = &f
		}
		if !tx.TransactionTime.IsZero() {
			at := tx.TransactionTime
			date := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
			hour := int32(at.Hour())
			fact.TransactionDate = &date
			fact.TransactionHour = &hour
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// BuildFctFunnel coerces step_order to an integer and orders the events by
// user_id, step_order and event_time (nulls last). Duplicate steps are kept
// and row_index is reassigned from 0.
func BuildFctFunnel(events []domain.FunnelEvent) ([]domain.FunnelFact, error) {
	facts := make([]domain.FunnelFact, 0, len(events))
	for _, e := range events {
		step, err := parseStepOrder(e.StepOrder)
		if err != nil {
			return nil, err
		}
		facts = append(facts, domain.FunnelFact{
			UserID:    e.UserID,
			StepOrder: step,
			StepName:  e.StepName,
			EventTime: domain.NullableTime(e.EventTime),
		})
	}

	slices.SortStableFunc(facts, func(a, b domain.FunnelFact) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.StepOrder, b.StepOrder); c != 0 {
			return c
		}
		return compareNullableTime(a.EventTime, b.EventTime)
	})

	for i := range facts {
		facts[i].RowIndex = int64(i)
	}
	return facts, nil
}

// parseAmount reports ok=false for an empty or NaN cell.
func parseAmount(value string) (decimal.Decimal, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "nan") {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false, errors.NewTypeCoercionError("amount_eur", value, err)
	}
	return d, true, nil
}

func parseStepOrder(value string) (int64, error) {
	step, err := parseInteger(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.NewTypeCoercionError("step_order", value, err)
	}
	return step, nil
}

// sortedByTime returns a stably sorted copy with zero times last.
func sortedByTime[T any](rows []T, at func(T) time.Time) []T {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return compareTime(at(a), at(b))
	})
	return sorted
}

func compareTime(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

func compareNullableTime(a, b *time.Time) int {
	var ta, tb time.Time
	if a != nil {
		ta = *a
	}
	if b != nil {
		tb = *b
	}
	return compareTime(ta, tb)
}

// minTime returns the earlier non-zero time.
func minTime(current, candidate time.Time) time.Time {
	if candidate.IsZero() {
		return current
	}
	if current.IsZero() || candidate.Before(current) {
		return candidate
	}
	return current
}

func hoursBetween(start, end *time.Time) *float64 {
	if start == nil || end == nil {
		return nil
	}
	hours := end.Sub(*start).Seconds() / secondsPerHour
	return &hours
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
