package guest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/appetiteclub/tableside/services/guest/internal/backend"
)

type AssignmentOutcome string

const (
	AssignmentNone     AssignmentOutcome = "none"
	AssignmentRejoined AssignmentOutcome = "rejoined"
	AssignmentCreated  AssignmentOutcome = "created"
)

type Assignment struct {
	Outcome AssignmentOutcome `json:"outcome"`
	Session Session           `json:"session"`
}

type LoginResult struct {
	User       backend.User `json:"user"`
	Assignment Assignment   `json:"assignment"`
}

var tableAccountPattern = regexp.MustCompile(`(?i)^table[-_ ]?(\d+)$`)

// TableNumberFromUsername extracts N from table account names such as
// "table5" or "Table-05". Leading zeros are dropped.
func TableNumberFromUsername(username string) (string, bool) {
	m := tableAccountPattern.FindStringSubmatch(strings.TrimSpace(username))
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

func sameTableNumber(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	return errA == nil && errB == nil && na == nb
}

// assign binds the terminal to table N: it rejoins the table's open session,
// starts a new one on a free table, or refuses. A terminal still seated on
// another session is refused so its rounds are not dropped.
func (t *Terminal) assign(ctx context.Context, number string, guestID *int64) (Assignment, error) {
	current := t.Session()

	tables, err := t.backend.ListTables(ctx)
	if err != nil {
		return Assignment{}, fmt.Errorf("list tables: %w", err)
	}

	var table *backend.Table
	for i := range tables {
		if sameTableNumber(tables[i].Number, number) {
			table = &tables[i]
			break
		}
	}
	if table == nil {
		return Assignment{}, fmt.Errorf("table %s: %w", number, ErrTableNotFound)
	}

	existing, err := t.backend.GetTableSession(ctx, table.ID)
	if err != nil {
		return Assignment{}, fmt.Errorf("get session for table %s: %w", table.ID, err)
	}

	if existing.Active() {
		session := Session{TableID: table.ID, SessionID: existing.SessionID(), TableNumber: table.Number}
		if err := t.adopt(ctx, session); err != nil {
			return Assignment{}, err
		}
		return Assignment{Outcome: AssignmentRejoined, Session: session}, nil
	}

	if current.Complete() {
		return Assignment{}, ErrSessionActive
	}
	if !table.Selectable() {
		return Assignment{}, fmt.Errorf("table %s is %s: %w", table.Number, table.Status, ErrTableUnavailable)
	}

	remote, err := t.backend.StartSession(ctx, backend.StartSessionRequest{TableID: table.ID, GuestID: guestID})
	if err != nil {
		return Assignment{}, fmt.Errorf("start session: %w", err)
	}

	session := Session{TableID: table.ID, SessionID: remote.SessionID(), TableNumber: table.Number}
	if err := t.adopt(ctx, session); err != nil {
		return Assignment{}, err
	}
	return Assignment{Outcome: AssignmentCreated, Session: session}, nil
}
