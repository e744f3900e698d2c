package operations

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelcli/internal/errors"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
		wantSentinel  error
	}{
		{
			name:         "schema error stays matchable",
			err:          errors.NewSchemaError("users", "user_id", "invalid integer", nil),
			wantType:     ErrorTypeExecution,
			wantSentinel: errors.ErrSchema,
		},
		{
			name:          "io error is retryable",
			err:           errors.NewIOError("disk full", nil),
			wantType:      ErrorTypeExecution,
			wantRetryable: true,
			wantSentinel:  errors.ErrIO,
		},
		{
			name:         "wrapped missing source",
			err:          fmt.Errorf("load: %w", errors.NewMissingSourceError("users", "/raw/users.csv", nil)),
			wantType:     ErrorTypeExecution,
			wantSentinel: errors.ErrMissingSource,
		},
		{
			name:         "cancellation",
			err:          fmt.Errorf("facts: %w", context.Canceled),
			wantType:     ErrorTypeCancellation,
			wantSentinel: context.Canceled,
		},
		{
			name:         "deadline",
			err:          context.DeadlineExceeded,
			wantType:     ErrorTypeCancellation,
			wantSentinel: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err, "load")
			require.NotNil(t, wrapped)

			assert.Equal(t, tt.wantType, wrapped.Type)
			assert.Equal(t, "load", wrapped.Step)
			assert.Equal(t, tt.wantRetryable, IsRetryable(wrapped))
			assert.True(t, stderrors.Is(wrapped, tt.wantSentinel))
			assert.Equal(t, tt.wantType, GetErrorType(fmt.Errorf("outer: %w", wrapped)))
		})
	}
}

func TestWrapError_KeepsOperationError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "x"))

	first := NewValidationError("", "bad state")
	wrapped := WrapError(first, "persist")
	assert.Same(t, first, wrapped)
	assert.Equal(t, "persist", wrapped.Step)
}

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{"with step and cause", NewExecutionError("load", stderrors.New("boom"), false), "[execution] load: step execution failed: boom"},
		{"without step", NewFatalError("no order", nil), "[fatal] no order"},
		{"dependency", NewDependencyError("facts", "dim_users", "dependency dim_users not completed"), "[dependency] facts: dependency dim_users not completed"},
		{"nil", nil, "unknown operation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestGetErrorType_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(stderrors.New("plain")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}
