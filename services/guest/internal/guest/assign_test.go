package guest

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNumberFromUsername(t *testing.T) {
	tests := []struct {
		username string
		number   string
		ok       bool
	}{
		{username: "table5", number: "5", ok: true},
		{username: "Table12", number: "12", ok: true},
		{username: "TABLE-05", number: "5", ok: true},
		{username: "table_3", number: "3", ok: true},
		{username: "  table7 ", number: "7", ok: true},
		{username: "table", ok: false},
		{username: "tablex", ok: false},
		{username: "waiter1", ok: false},
		{username: "mytable5", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			number, ok := TableNumberFromUsername(tt.username)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestLoginAutoAssignment(t *testing.T) {
	tests := []struct {
		name     string
		username string
		tables   []backend.Table
		existing *backend.TableSession
		outcome  AssignmentOutcome
		session  Session
		err      error
	}{
		{
			name:     "rejoinsActiveSession",
			username: "table5",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "taken"}},
			existing: &backend.TableSession{ID: "s-existing", TableID: "t5", Status: "taken"},
			outcome:  AssignmentRejoined,
			session:  Session{TableID: "t5", SessionID: "s-existing", TableNumber: "5"},
		},
		{
			name:     "createsOnFreeTable",
			username: "table05",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "free"}},
			outcome:  AssignmentCreated,
			session:  Session{TableID: "t5", SessionID: "s1", TableNumber: "5"},
		},
		{
			name:     "createsOnAvailableAlias",
			username: "table5",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "available"}},
			outcome:  AssignmentCreated,
			session:  Session{TableID: "t5", SessionID: "s1", TableNumber: "5"},
		},
		{
			name:     "rejectsBusyTableWithoutSession",
			username: "table5",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "served"}},
			err:      ErrTableUnavailable,
		},
		{
			name:     "rejectsFinishedSession",
			username: "table5",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "finished"}},
			existing: &backend.TableSession{ID: "s-old", TableID: "t5", Status: "finished"},
			err:      ErrTableUnavailable,
		},
		{
			name:     "rejectsUnknownTable",
			username: "table9",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "free"}},
			err:      ErrTableNotFound,
		},
		{
			name:     "regularUserSkipsAssignment",
			username: "alice",
			tables:   []backend.Table{{ID: "t5", Number: "5", Status: "free"}},
			outcome:  AssignmentNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := NewMockBackend(tt.tables...)
			if tt.existing != nil {
				be.SetTableSession(tt.existing.TableRef(), tt.existing)
			}
			terminal := newTestTerminal(be, nil, nil)

			result, err := terminal.Login(context.Background(), tt.username, "secret")

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.True(t, terminal.Session().IsZero(), "a rejected assignment must not populate the session")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Assignment.Outcome)
			assert.Equal(t, tt.session, result.Assignment.Session)
			assert.Equal(t, tt.session, terminal.Session())
			assert.Equal(t, tt.username, result.User.Username)
		})
	}
}

func TestLoginFailureLeavesTerminalUntouched(t *testing.T) {
	be := NewMockBackend(backend.Table{ID: "t5", Number: "5", Status: "free"})
	be.LoginFunc = func(ctx context.Context, username, password string) (*backend.AuthResponse, error) {
		return nil, &backend.APIError{Status: 401, Message: "bad credentials"}
	}
	terminal := newTestTerminal(be, nil, nil)

	_, err := terminal.Login(context.Background(), "table5", "wrong")

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
	assert.Nil(t, terminal.User())
	assert.True(t, terminal.Session().IsZero())
}

func TestLoginRefusesToLeaveActiveSession(t *testing.T) {
	be := NewMockBackend(backend.Table{ID: "t9", Number: "9", Status: "free"})
	var started int
	be.StartFunc = func(ctx context.Context, req backend.StartSessionRequest) (*backend.TableSession, error) {
		started++
		return &backend.TableSession{ID: "s9", TableID: "t9", Status: "taken"}, nil
	}
	be.CreateOrderFunc = func(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error) {
		return nil, errUnreachable
	}
	pub := NewMockPublisher()
	terminal := seatedTerminal(t, be, nil, pub)
	ctx := context.Background()

	terminal.AddItem(ctx, CartItem{ID: 1, Name: "Pizza", UnitPrice: 8})
	_, err := terminal.SubmitCart(ctx)
	require.NoError(t, err)
	terminal.AddItem(ctx, CartItem{ID: 2, Name: "Water", UnitPrice: 2})

	result, err := terminal.Login(ctx, "table9", "secret")

	require.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, AssignmentNone, result.Assignment.Outcome)
	assert.Equal(t, 0, started)
	assert.Equal(t, "s1", terminal.Session().SessionID)
	require.Len(t, terminal.Orders(), 1)
	assert.Equal(t, 1, terminal.Cart().Count)
	assert.Empty(t, pub.Messages(event.GuestSessionsTopic))
}

func TestLoginRejoinsCurrentSession(t *testing.T) {
	be := NewMockBackend(backend.Table{ID: "5", Number: "5", Status: "taken"})
	be.SetTableSession("5", &backend.TableSession{ID: "s1", TableID: "5", Status: "taken"})
	terminal := seatedTerminal(t, be, nil, nil)
	ctx := context.Background()

	terminal.AddItem(ctx, CartItem{ID: 1, Name: "Pizza", UnitPrice: 8})
	_, err := terminal.SubmitCart(ctx)
	require.NoError(t, err)

	result, err := terminal.Login(ctx, "table5", "secret")

	require.NoError(t, err)
	assert.Equal(t, AssignmentRejoined, result.Assignment.Outcome)
	assert.Equal(t, "s1", terminal.Session().SessionID)
	assert.Len(t, terminal.Orders(), 1)
}
