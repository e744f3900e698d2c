package dataprocessing

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

// scenarioCSV is one fully converted user (1) and one user with no activity (2).
var scenarioCSV = map[string]string{
	domain.TableUsers: `user_id,signup_at,country,device,marketing_channel
1,2024-01-01 00:00:00,DE,iOS,Organic
2,2024-01-02 08:00:00,AT,Web,Referral
`,
	domain.TableKYC: `user_id,kyc_started_at,kyc_completed_at,kyc_status
1,2024-01-01 01:00:00,2024-01-01 01:30:00,APPROVED
`,
	domain.TableCards: `user_id,card_activated_at,card_type
1,2024-01-01 02:00:00,Virtual
`,
	domain.TableTransactions: `user_id,transaction_time,amount_eur,category,merchant_country,transaction_type
1,2024-01-01 03:00:00,10.00,Groceries,DE,CARD_PAYMENT
`,
	domain.TableFunnelEvents: `user_id,step_order,step_name,event_time
1,1,VIEWED_SIGNUP,2024-01-01 00:00:00
1,2,STARTED_REGISTRATION,2024-01-01 00:10:00
2,1,VIEWED_SIGNUP,2024-01-02 08:00:00
`,
}

func writeRawFiles(t *testing.T, files map[string]string) *config.Paths {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), t.TempDir())
	for name, content := range files {
		require.NoError(t, os.WriteFile(paths.GetRawPath(name), []byte(content), 0644))
	}
	return paths
}

func withFile(name, content string) map[string]string {
	files := make(map[string]string, len(scenarioCSV))
	for k, v := range scenarioCSV {
		files[k] = v
	}
	if content == "" {
		delete(files, name)
	} else {
		files[name] = content
	}
	return files
}

func TestLoader_Load(t *testing.T) {
	paths := writeRawFiles(t, scenarioCSV)

	raw, err := NewLoader(paths, nil).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		domain.TableUsers:        2,
		domain.TableKYC:          1,
		domain.TableCards:        1,
		domain.TableTransactions: 1,
		domain.TableFunnelEvents: 3,
	}, raw.RowCounts())

	assert.Equal(t, int64(1), raw.Users[0].UserID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), raw.Users[0].SignupAt)
	assert.Equal(t, "Organic", raw.Users[0].MarketingChannel)
	assert.Equal(t, domain.KYCStatusApproved, raw.KYC[0].KycStatus)
	assert.Equal(t, "10.00", raw.Transactions[0].AmountEUR)
	assert.Equal(t, "2", raw.Funnel[1].StepOrder)
}

func TestLoader_ColumnOrderAndBOM(t *testing.T) {
	users := "\ufeffcountry,marketing_channel,user_id,device,signup_at\nDE,Paid Search,7,Android,2024-03-01T10:15:00\n"
	paths := writeRawFiles(t, withFile(domain.TableUsers, users))

	raw, err := NewLoader(paths, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Users, 1)

	assert.Equal(t, domain.User{
		UserID:           7,
		SignupAt:         time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
		Country:          "DE",
		Device:           "Android",
		MarketingChannel: "Paid Search",
	}, raw.Users[0])
}

func TestLoader_EmptyTimestampIsNull(t *testing.T) {
	kyc := "user_id,kyc_started_at,kyc_completed_at,kyc_status\n1,2024-01-01 01:00:00,,PENDING\n"
	paths := writeRawFiles(t, withFile(domain.TableKYC, kyc))

	raw, err := NewLoader(paths, nil).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, raw.KYC[0].KycCompletedAt.IsZero())
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		wantType errors.ErrorType
		sentinel error
		contains string
	}{
		{
			name:     "missing file",
			files:    withFile(domain.TableCards, ""),
			wantType: errors.ErrTypeMissingSource,
			sentinel: errors.ErrMissingSource,
			contains: "cards",
		},
		{
			name:     "missing user_id column",
			files:    withFile(domain.TableKYC, "id,kyc_started_at,kyc_completed_at,kyc_status\n"),
			wantType: errors.ErrTypeSchema,
			sentinel: errors.ErrSchema,
			contains: "kyc.user_id",
		},
		{
			name:     "missing timestamp column",
			files:    withFile(domain.TableTransactions, "user_id,amount_eur,category,merchant_country,transaction_type\n"),
			wantType: errors.ErrTypeSchema,
			sentinel: errors.ErrSchema,
			contains: "transactions.transaction_time",
		},
		{
			name:     "unparseable timestamp",
			files:    withFile(domain.TableFunnelEvents, "user_id,step_order,step_name,event_time\n1,1,VIEWED_SIGNUP,yesterday\n"),
			wantType: errors.ErrTypeSchema,
			sentinel: errors.ErrSchema,
			contains: "line 2",
		},
		{
			name:     "non numeric user_id",
			files:    withFile(domain.TableUsers, "user_id,signup_at,country,device,marketing_channel\nabc,2024-01-01,DE,iOS,Organic\n"),
			wantType: errors.ErrTypeSchema,
			sentinel: errors.ErrSchema,
			contains: "users.user_id",
		},
		{
			name:     "empty file",
			files:    withFile(domain.TableUsers, " "),
			wantType: errors.ErrTypeSchema,
			sentinel: errors.ErrSchema,
			contains: "users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := writeRawFiles(t, tt.files)

			raw, err := NewLoader(paths, nil).Load(context.Background())
			require.Error(t, err)
			assert.Nil(t, raw)
			assert.Equal(t, tt.wantType, errors.TypeOf(err))
			assert.True(t, stderrors.Is(err, tt.sentinel))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoader_MissingRawDirectory(t *testing.T) {
	paths := config.NewPaths(filepath.Join(t.TempDir(), "absent"), t.TempDir())

	_, err := NewLoader(paths, nil).Load(context.Background())
	assert.True(t, stderrors.Is(err, errors.ErrMissingSource))
}

func TestLoader_CancelledContext(t *testing.T) {
	paths := writeRawFiles(t, scenarioCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(paths, nil).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-01 01:30:00", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01 01:30:00.250", time.Date(2024, 1, 1, 1, 30, 0, 250_000_000, time.UTC), false},
		{"2024-01-01T01:30:00", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01T03:30:00+02:00", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01T01:30:00Z", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01 01:00:00+00:00", time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), false},
		{"2024-01-01 03:30:00.5+02:00", time.Date(2024, 1, 1, 1, 30, 0, 500_000_000, time.UTC), false},
		{"2024-01-01 01:30:00Z", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01 01:30", time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC), false},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, false},
		{"NaT", time.Time{}, false},
		{"01/02/2024", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestReadCSV_ShortRows(t *testing.T) {
	table, err := readCSV("cards", strings.NewReader("user_id,card_activated_at,card_type\n5,2024-01-01 00:00:00\n"))
	require.NoError(t, err)

	cards, err := parseCards(table)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "", cards[0].CardType)
}
