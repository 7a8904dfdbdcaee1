// Package mongo implements the document store on MongoDB. Collection names
// follow the upstream schema: users, expense, income.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/store"
)

const (
	usersCollection   = "users"
	expenseCollection = "expense"
	incomeCollection  = "income"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *applog.Logger
}

type userDoc struct {
	ID           string   `bson:"_id"`
	Email        string   `bson:"email"`
	PasswordHash string   `bson:"password_hash"`
	Expenses     []string `bson:"expenses"`
	Incomes      []string `bson:"incomes"`
}

func (d userDoc) toUser() core.User {
	return core.User{
		ID:         d.ID,
		Email:      d.Email,
		ExpenseIDs: d.Expenses,
		IncomeIDs:  d.Incomes,
	}
}

type expenseDoc struct {
	ID       string    `bson:"_id"`
	Name     string    `bson:"name"`
	Category string    `bson:"category"`
	Amount   int64     `bson:"amount_cents"`
	Date     time.Time `bson:"date"`
}

type incomeDoc struct {
	ID     string    `bson:"_id"`
	Amount int64     `bson:"amount_cents"`
	Date   time.Time `bson:"date"`
}

// Connect dials the server and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		logger: logger.WithComponent(applog.ComponentStore),
	}
	s.logger.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// NewID pre-allocates a document identifier.
func (s *Store) NewID() string {
	return bson.NewObjectID().Hex()
}

func (s *Store) InsertUser(ctx context.Context, u core.User, passwordHash string) error {
	doc := userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: passwordHash,
		Expenses:     []string{},
		Incomes:      []string{},
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (core.User, error) {
	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.User{}, store.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return doc.toUser(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var doc userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.User{}, "", store.ErrNotFound
		}
		return core.User{}, "", fmt.Errorf("find user by email: %w", err)
	}
	return doc.toUser(), doc.PasswordHash, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.Collection(usersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) error {
	doc := expenseDoc{
		ID:       e.ID,
		Name:     e.Name,
		Category: e.Category,
		Amount:   e.Amount.Cents,
		Date:     e.Date,
	}
	if _, err := s.db.Collection(expenseCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) InsertIncome(ctx context.Context, in core.Income) error {
	doc := incomeDoc{
		ID:     in.ID,
		Amount: in.Amount.Cents,
		Date:   in.Date,
	}
	if _, err := s.db.Collection(incomeCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert income: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var doc expenseDoc
	err := s.db.Collection(expenseCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.Expense{}, store.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return core.Expense{
		ID:       doc.ID,
		Name:     doc.Name,
		Category: doc.Category,
		Amount:   core.Money{Cents: doc.Amount},
		Date:     doc.Date,
	}, nil
}

func (s *Store) GetIncome(ctx context.Context, id string) (core.Income, error) {
	var doc incomeDoc
	err := s.db.Collection(incomeCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return core.Income{}, store.ErrNotFound
		}
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return core.Income{
		ID:     doc.ID,
		Amount: core.Money{Cents: doc.Amount},
		Date:   doc.Date,
	}, nil
}

func (s *Store) AppendExpenseRef(ctx context.Context, userID, expenseID string) error {
	return s.appendRef(ctx, userID, "expenses", expenseID)
}

func (s *Store) AppendIncomeRef(ctx context.Context, userID, incomeID string) error {
	return s.appendRef(ctx, userID, "incomes", incomeID)
}

func (s *Store) appendRef(ctx context.Context, userID, field, recordID string) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{field: recordID}},
	)
	if err != nil {
		return fmt.Errorf("append %s ref: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// WatchUser opens a change stream scoped to the user's document and invokes
// onChange for every mutation until ctx is done.
func (s *Store) WatchUser(ctx context.Context, userID string, onChange func()) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": userID}}},
	}
	stream, err := s.db.Collection(usersCollection).Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("watch user: %w", err)
	}
	defer stream.Close(context.Background())

	s.logger.InfoContext(ctx, "User change stream opened", applog.FieldUserID, userID)
	for stream.Next(ctx) {
		onChange()
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}
