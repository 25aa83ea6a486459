package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/aquamarinepk/aqm"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultPath = "tableside.db"

// terminalState is the row layout; nested values are stored as JSON columns.
type terminalState struct {
	TerminalID string             `gorm:"primaryKey"`
	Session    guest.Session      `gorm:"serializer:json"`
	Cart       []guest.CartItem   `gorm:"serializer:json"`
	Orders     []guest.LocalOrder `gorm:"serializer:json"`
	LastRound  int                `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (terminalState) TableName() string {
	return "terminal_states"
}

var _ guest.StateStore = (*StateRepo)(nil)

// StateRepo keeps terminal snapshots in a local SQLite file so a device
// recovers its guest state without network access.
type StateRepo struct {
	db     *gorm.DB
	path   string
	logger aqm.Logger
}

func NewStateRepo(config *aqm.Config, logger aqm.Logger) *StateRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	path := DefaultPath
	if config != nil {
		if v, ok := config.GetString("store.sqlite.path"); ok && v != "" {
			path = v
		}
	}
	return &StateRepo{path: path, logger: logger}
}

// NewInMemoryStateRepo opens a private in-memory database. Used in tests.
func NewInMemoryStateRepo() *StateRepo {
	return &StateRepo{path: ":memory:", logger: aqm.NewNoopLogger()}
}

func (r *StateRepo) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(r.path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("cannot open sqlite database %s: %w", r.path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("cannot get sqlite handle: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&terminalState{}); err != nil {
		return fmt.Errorf("cannot migrate terminal_states: %w", err)
	}

	r.db = db
	r.logger.Infof("Opened SQLite state store: %s", r.path)
	return nil
}

func (r *StateRepo) Stop(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("cannot get sqlite handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("cannot close sqlite database: %w", err)
	}
	r.db = nil
	r.logger.Info("Closed SQLite state store")
	return nil
}

func (r *StateRepo) Load(ctx context.Context, terminalID string) (*guest.State, error) {
	if r.db == nil {
		return nil, fmt.Errorf("state repo not started")
	}

	var row terminalState
	err := r.db.WithContext(ctx).First(&row, "terminal_id = ?", terminalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot load terminal state: %w", err)
	}

	return &guest.State{
		TerminalID: row.TerminalID,
		Session:    row.Session,
		Cart:       row.Cart,
		Orders:     row.Orders,
		LastRound:  row.LastRound,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (r *StateRepo) Save(ctx context.Context, state *guest.State) error {
	if state == nil {
		return fmt.Errorf("state is nil")
	}
	if r.db == nil {
		return fmt.Errorf("state repo not started")
	}

	row := terminalState{
		TerminalID: state.TerminalID,
		Session:    state.Session,
		Cart:       state.Cart,
		Orders:     state.Orders,
		LastRound:  state.LastRound,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("cannot save terminal state: %w", err)
	}
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, terminalID string) error {
	if r.db == nil {
		return fmt.Errorf("state repo not started")
	}

	err := r.db.WithContext(ctx).Delete(&terminalState{}, "terminal_id = ?", terminalID).Error
	if err != nil {
		return fmt.Errorf("cannot delete terminal state: %w", err)
	}
	return nil
}
