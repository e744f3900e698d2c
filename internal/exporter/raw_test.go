package exporter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelcli/pkg/contracts/domain"
)

func TestCSVWriter_WriteRawTables(t *testing.T) {
	writer, paths := setupTestEnv(t)
	signup := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	raw := &domain.RawTables{
		Users: []domain.User{{UserID: 1, SignupAt: signup, Country: "DE", Device: "iOS", MarketingChannel: "Paid Search"}},
		KYC:   []domain.KycAttempt{{UserID: 1, KycStartedAt: signup, KycStatus: "PENDING"}},
		Transactions: []domain.Transaction{
			{UserID: 1, TransactionTime: signup, AmountEUR: "12.50", Category: "Food, Drinks", MerchantCountry: "DE", TransactionType: "CARD_PAYMENT"},
		},
		Funnel: []domain.FunnelEvent{{UserID: 1, StepOrder: "1", StepName: "VIEWED_SIGNUP", EventTime: signup}},
	}

	written, err := writer.WriteRawTables(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, written, 5)
	assert.Equal(t, filepath.Join(paths.RawDir, "users.csv"), written[0])

	users := readCSVFile(t, paths.GetRawPath(domain.TableUsers))
	assert.Equal(t, [][]string{
		{"user_id", "signup_at", "country", "device", "marketing_channel"},
		{"1", "2024-05-06 07:08:09", "DE", "iOS", "Paid Search"},
	}, users)

	kyc := readCSVFile(t, paths.GetRawPath(domain.TableKYC))
	assert.Equal(t, []string{"1", "2024-05-06 07:08:09", "", "PENDING"}, kyc[1])

	cards := readCSVFile(t, paths.GetRawPath(domain.TableCards))
	assert.Len(t, cards, 1, "header only")

	txs := readCSVFile(t, paths.GetRawPath(domain.TableTransactions))
	assert.Equal(t, "Food, Drinks", txs[1][3])
}

func TestCSVWriter_WriteRawTables_Cancelled(t *testing.T) {
	writer, _ := setupTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := writer.WriteRawTables(ctx, &domain.RawTables{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, written)
}
