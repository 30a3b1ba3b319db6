package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/db/circuit"
	"github.com/boardloop/turn-engine/internal/game/models"
	"github.com/boardloop/turn-engine/internal/game/store"
)

// Store implements store.Store on MongoDB.
// With transactions enabled each unit of work runs in a session transaction,
// which needs a replica set. Without them a unit of work is not atomic.
type Store struct {
	client          *mongo.Client
	db              *mongo.Database
	breaker         *circuit.Breaker
	useTransactions bool
	logger          *zap.SugaredLogger
}

// NewStore creates a new Store
func NewStore(client *mongo.Client, dbName string, useTransactions bool, logger *zap.SugaredLogger) *Store {
	if !useTransactions {
		logger.Warn("MongoDB transactions are disabled: a failed action may leave partial writes behind")
	}
	return &Store{
		client:          client,
		db:              client.Database(dbName),
		breaker:         circuit.NewBreaker(5, 10*time.Second),
		useTransactions: useTransactions,
		logger:          logger,
	}
}

// Database returns the underlying database
func (s *Store) Database() *mongo.Database {
	return s.db
}

// WithTx implements store.Store
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if !s.breaker.AllowRequest() {
		s.logger.Warn("Circuit breaker is open, fast-failing MongoDB request")
		return circuit.ErrOpen
	}

	err := s.run(ctx, fn)
	if err != nil && isInfraError(err) {
		s.breaker.RecordFailure()
	} else {
		s.breaker.RecordSuccess()
	}
	return err
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx := &mongoTx{db: s.db}
	if !s.useTransactions {
		return fn(ctx, tx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, tx)
	})
	return err
}

// EnsureBoard implements store.Store
func (s *Store) EnsureBoard(ctx context.Context, props []*models.Property, cards []*models.Card) error {
	if err := CreateIndexes(ctx, s.db); err != nil {
		return err
	}

	propDocs := make([]interface{}, 0, len(props))
	for _, p := range props {
		propDocs = append(propDocs, p)
	}
	if err := s.seed(ctx, PropertiesCollection, propDocs); err != nil {
		return err
	}

	cardDocs := make([]interface{}, 0, len(cards))
	for _, c := range cards {
		cardDocs = append(cardDocs, c)
	}
	return s.seed(ctx, CardsCollection, cardDocs)
}

func (s *Store) seed(ctx context.Context, name string, docs []interface{}) error {
	coll := s.db.Collection(name)
	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", name, err)
	}
	if count > 0 || len(docs) == 0 {
		return nil
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed %s: %w", name, err)
	}
	s.logger.Infof("Seeded %d documents into %s", len(docs), name)
	return nil
}

// Ping implements store.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.breaker.Execute(func() error {
		return s.client.Ping(ctx, readpref.Primary())
	})
}

// Close implements store.Store
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoTx struct {
	db *mongo.Database
}

func (tx *mongoTx) players() *mongo.Collection    { return tx.db.Collection(PlayersCollection) }
func (tx *mongoTx) properties() *mongo.Collection { return tx.db.Collection(PropertiesCollection) }

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func (tx *mongoTx) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := tx.db.Collection(CountersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (tx *mongoTx) CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.ID == 0 {
		id, err := tx.nextID(ctx, PlayersCollection)
		if err != nil {
			return err
		}
		player.ID = id
	}
	_, err := tx.players().InsertOne(ctx, player)
	return err
}

func (tx *mongoTx) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	var player models.Player
	if err := tx.players().FindOne(ctx, bson.M{"_id": id}).Decode(&player); err != nil {
		return nil, notFound(err, fmt.Sprintf("player %d", id))
	}
	return &player, nil
}

func (tx *mongoTx) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	cursor, err := tx.players().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var players []*models.Player
	if err := cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (tx *mongoTx) UpdatePlayer(ctx context.Context, player *models.Player) error {
	res, err := tx.players().ReplaceOne(ctx, bson.M{"_id": player.ID}, player)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %d: %w", player.ID, store.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) DeletePlayer(ctx context.Context, id int64) error {
	res, err := tx.players().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("player %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) DeleteAllPlayers(ctx context.Context) error {
	_, err := tx.players().DeleteMany(ctx, bson.M{})
	return err
}

func (tx *mongoTx) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var prop models.Property
	if err := tx.properties().FindOne(ctx, bson.M{"_id": id}).Decode(&prop); err != nil {
		return nil, notFound(err, fmt.Sprintf("property %d", id))
	}
	return &prop, nil
}

func (tx *mongoTx) PropertyAt(ctx context.Context, position int) (*models.Property, error) {
	var prop models.Property
	if err := tx.properties().FindOne(ctx, bson.M{"position": position}).Decode(&prop); err != nil {
		return nil, notFound(err, fmt.Sprintf("property at position %d", position))
	}
	return &prop, nil
}

func (tx *mongoTx) findProperties(ctx context.Context, filter bson.M) ([]*models.Property, error) {
	cursor, err := tx.properties().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var props []*models.Property
	if err := cursor.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (tx *mongoTx) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return tx.findProperties(ctx, bson.M{})
}

func (tx *mongoTx) PropertiesOwnedBy(ctx context.Context, playerID int64) ([]*models.Property, error) {
	return tx.findProperties(ctx, bson.M{"ownerId": playerID})
}

func (tx *mongoTx) UpdateProperty(ctx context.Context, prop *models.Property) error {
	res, err := tx.properties().ReplaceOne(ctx, bson.M{"_id": prop.ID}, prop)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("property %d: %w", prop.ID, store.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) ListCards(ctx context.Context, category models.CardCategory) ([]*models.Card, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	cursor, err := tx.db.Collection(CardsCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var cards []*models.Card
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (tx *mongoTx) GetState(ctx context.Context) (*models.GameState, error) {
	coll := tx.db.Collection(StateCollection)

	var state models.GameState
	err := coll.FindOne(ctx, bson.M{"_id": models.GameStateID}).Decode(&state)
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	initial := models.NewGameState()
	if _, err := coll.InsertOne(ctx, initial); err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}
	return initial, nil
}

func (tx *mongoTx) SaveState(ctx context.Context, state *models.GameState) error {
	state.ID = models.GameStateID
	_, err := tx.db.Collection(StateCollection).ReplaceOne(
		ctx,
		bson.M{"_id": models.GameStateID},
		state,
		options.Replace().SetUpsert(true),
	)
	return err
}
