package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/appetiteclub/tableside/services/guest/internal/mongo"
	"github.com/appetiteclub/tableside/services/guest/internal/sqlite"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName    = "guest"
	AppVersion = "0.1.0"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// App encapsulates the guest terminal service
type App struct {
	config   *aqm.Config
	logger   aqm.Logger
	micro    *aqm.Micro
	terminal *guest.Terminal
}

func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	store, storeLifecycle, err := NewStateStore(a.config, a.logger)
	if err != nil {
		return err
	}

	client := backend.NewClientFromConfig(a.config, a.logger)

	var lifecycles []interface{}
	if storeLifecycle != nil {
		lifecycles = append(lifecycles, storeLifecycle)
	}

	var publisher aqmevents.Publisher
	tableStates := guest.NewTableStatusCache(0)
	var statusSubscriber *guest.TableStatusSubscriber

	if enabled(a.config, "events.enabled") {
		natsURL, _ := a.config.GetString("nats.url")
		if natsURL == "" {
			natsURL = "nats://localhost:4222"
		}
		terminalID, _ := a.config.GetString("terminal.id")
		if terminalID == "" {
			terminalID = guest.DefaultTerminalID
		}
		natsOpts := pkg.NATSOptions{
			URL:    natsURL,
			Name:   AppName + "-" + terminalID,
			Logger: a.logger,
		}

		if enabled(a.config, "nats.stream.enabled") {
			stream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
				URL:        natsURL,
				StreamName: "GUEST_EVENTS",
				Subjects:   []string{event.GuestRoundsTopic, event.GuestSessionsTopic, pkg.TableStatusTopic},
				MaxAge:     24 * time.Hour,
				Name:       natsOpts.Name,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			a.logger.Info("NATS stream initialized for persistent events")
			publisher = stream
			lifecycles = append(lifecycles, aqm.LifecycleHooks{
				OnStop: func(context.Context) error { return stream.Close() },
			})
		} else {
			natsPublisher, err := pkg.NewNATSPublisher(natsOpts)
			if err != nil {
				return err
			}
			publisher = natsPublisher
			lifecycles = append(lifecycles, aqm.LifecycleHooks{
				OnStop: func(context.Context) error { return natsPublisher.Close() },
			})
		}

		subscriber, err := pkg.NewNATSSubscriber(natsOpts)
		if err != nil {
			return err
		}
		statusSubscriber = guest.NewTableStatusSubscriber(subscriber, tableStates, a.logger)
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return subscriber.Close() },
		})
	}

	a.terminal = guest.NewTerminalFromConfig(a.config, client, store, publisher, a.logger)
	retrier := guest.NewRetrierFromConfig(a.config, a.terminal, a.logger)

	lifecycles = append(lifecycles, a.terminal, retrier)
	if statusSubscriber != nil {
		lifecycles = append(lifecycles, statusSubscriber)
	}

	handler := guest.NewHandler(guest.HandlerDeps{
		Terminal:    a.terminal,
		Catalog:     client,
		TableStates: tableStates,
		Publisher:   publisher,
	}, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// Lifecycle is implemented by stores that hold a connection.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewStateStore picks the terminal state store for store.driver. The returned
// lifecycle is nil for drivers without a connection.
func NewStateStore(config *aqm.Config, logger aqm.Logger) (guest.StateStore, Lifecycle, error) {
	driver, _ := config.GetString("store.driver")
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", StoreDriverSQLite:
		repo := sqlite.NewStateRepo(config, logger)
		return repo, repo, nil
	case StoreDriverMongo:
		repo := mongo.NewStateRepo(config, logger)
		return repo, repo, nil
	case StoreDriverMemory:
		logger.Info("using in-memory terminal state; guest state will not survive restarts")
		return guest.NewMemoryStateStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func enabled(config *aqm.Config, key string) bool {
	v, _ := config.GetString(key)
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
