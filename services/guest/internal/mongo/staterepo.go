package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/tableside/services/guest/internal/guest"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ guest.StateStore = (*StateRepo)(nil)

// StateRepo stores one document per terminal, keyed by terminal id.
type StateRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     aqm.Logger
	config     *aqm.Config
}

func NewStateRepo(config *aqm.Config, logger aqm.Logger) *StateRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &StateRepo{
		logger: logger,
		config: config,
	}
}

func (r *StateRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "tableside"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection("terminal_states")

	sessionIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "session.session_id", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, sessionIndex); err != nil {
		return fmt.Errorf("cannot create session index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: terminal_states", mongoURL, dbName)
	return nil
}

func (r *StateRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *StateRepo) Load(ctx context.Context, terminalID string) (*guest.State, error) {
	if r.collection == nil {
		return nil, fmt.Errorf("state repo not started")
	}

	var state guest.State
	err := r.collection.FindOne(ctx, bson.M{"_id": terminalID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot load terminal state: %w", err)
	}
	return &state, nil
}

func (r *StateRepo) Save(ctx context.Context, state *guest.State) error {
	if state == nil {
		return fmt.Errorf("state is nil")
	}
	if r.collection == nil {
		return fmt.Errorf("state repo not started")
	}

	state.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": state.TerminalID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, state, opts); err != nil {
		return fmt.Errorf("cannot save terminal state: %w", err)
	}
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, terminalID string) error {
	if r.collection == nil {
		return fmt.Errorf("state repo not started")
	}

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": terminalID}); err != nil {
		return fmt.Errorf("cannot delete terminal state: %w", err)
	}
	return nil
}
