package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "missing source", errType: ErrTypeMissingSource, expected: "MISSING_SOURCE"},
		{name: "schema", errType: ErrTypeSchema, expected: "SCHEMA"},
		{name: "type coercion", errType: ErrTypeTypeCoercion, expected: "TYPE_COERCION"},
		{name: "io", errType: ErrTypeIO, expected: "IO"},
		{name: "config", errType: ErrTypeConfig, expected: "CONFIG"},
		{name: "validation", errType: ErrTypeValidation, expected: "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeSchema, Message: "users.user_id: column missing"},
			wantMessage: "[SCHEMA] users.user_id: column missing",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeIO,
				Message: "write dim_users.parquet",
				Cause:   errors.New("disk full"),
			},
			wantMessage: "[IO] write dim_users.parquet: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_IsMatchesSentinelByType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"missing source", NewMissingSourceError("users", "/raw/users.csv", nil), ErrMissingSource, true},
		{"schema", NewSchemaError("kyc", "kyc_started_at", "unparseable timestamp", nil), ErrSchema, true},
		{"coercion", NewTypeCoercionError("amount_eur", "abc", nil), ErrTypeCoercion, true},
		{"io", NewIOError("rename failed", nil), ErrIO, true},
		{"config", NewConfigError("bad format", nil), ErrConfig, true},
		{"type mismatch", NewIOError("rename failed", nil), ErrSchema, false},
		{"plain error", errors.New("boom"), ErrIO, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestAppError_WrappedChain(t *testing.T) {
	root := errors.New("permission denied")
	appErr := NewIOError("create staging directory", root)
	wrapped := fmt.Errorf("persist: %w", appErr)

	assert.True(t, errors.Is(wrapped, ErrIO))
	assert.True(t, errors.Is(wrapped, root))
	assert.Equal(t, ErrTypeIO, TypeOf(wrapped))

	var target *AppError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "create staging directory", target.Message)
}

func TestConstructorsCarryContext(t *testing.T) {
	err := NewMissingSourceError("cards", "/data/raw/cards.csv", nil)
	assert.Equal(t, "cards", err.Context["table"])
	assert.Equal(t, "/data/raw/cards.csv", err.Context["path"])

	schemaErr := NewSchemaError("funnel_events", "event_time", "unparseable timestamp", nil).
		WithContext("line", 7)
	assert.Equal(t, "funnel_events", schemaErr.Context["table"])
	assert.Equal(t, "event_time", schemaErr.Context["column"])
	assert.Equal(t, 7, schemaErr.Context["line"])

	coercion := NewTypeCoercionError("step_order", "two", nil)
	assert.Contains(t, coercion.Error(), `"two"`)
}

func TestTypeOf_NoAppError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
