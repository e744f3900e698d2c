package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStep struct {
	BaseStage
	run         func(ctx context.Context, state *OperationState) error
	validateErr error
	calls       int
}

func newMockStep(id string, deps ...string) *mockStep {
	return &mockStep{BaseStage: NewBaseStage(id, "Step "+id, deps)}
}

func (m *mockStep) Validate(state *OperationState) error {
	return m.validateErr
}

func (m *mockStep) Execute(ctx context.Context, state *OperationState) error {
	m.calls++
	if m.run != nil {
		return m.run(ctx, state)
	}
	return nil
}

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID()
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	assert.Empty(t, registry.ListIDs())

	require.NoError(t, registry.Register(newMockStep("a")))
	require.NoError(t, registry.Register(newMockStep("b")))

	assert.Equal(t, []string{"a", "b"}, registry.ListIDs())

	got, err := registry.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID())

	_, err = registry.Get("z")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistry_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"nil step", nil, "nil step"},
		{"empty id", newMockStep(""), "ID cannot be empty"},
		{"duplicate", newMockStep("a"), "already registered"},
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockStep("a")))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, registry.Register(tt.step), tt.wantErr)
		})
	}
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*mockStep
		want    []string
		wantErr string
	}{
		{
			name: "pipeline registered out of order",
			steps: []*mockStep{
				newMockStep("persist", "dim_users", "facts"),
				newMockStep("facts", "dim_users"),
				newMockStep("dim_users", "load"),
				newMockStep("load"),
			},
			want: []string{"load", "dim_users", "facts", "persist"},
		},
		{
			name: "independent steps keep registration order",
			steps: []*mockStep{
				newMockStep("c"),
				newMockStep("a"),
				newMockStep("b", "c"),
			},
			want: []string{"c", "a", "b"},
		},
		{
			name:    "missing dependency",
			steps:   []*mockStep{newMockStep("a", "ghost")},
			wantErr: "non-existent step ghost",
		},
		{
			name:    "cycle",
			steps:   []*mockStep{newMockStep("a", "b"), newMockStep("b", "a")},
			wantErr: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, registry.Register(s))
			}

			ordered, err := registry.GetDependencyOrder()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(ordered))
		})
	}
}

func TestRegistry_GetDependents(t *testing.T) {
	registry := NewRegistry()
	for _, s := range []*mockStep{
		newMockStep("load"),
		newMockStep("dim_users", "load"),
		newMockStep("facts", "dim_users"),
		newMockStep("persist", "dim_users", "facts"),
		newMockStep("other"),
	} {
		require.NoError(t, registry.Register(s))
	}

	assert.Equal(t, []string{"facts", "persist"}, ids(registry.GetDependents("dim_users")))
	assert.Equal(t, []string{"dim_users", "facts", "persist"}, ids(registry.GetDependents("load")))
	assert.Empty(t, registry.GetDependents("other"))
}
