package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Collection names shared with the identity provider.
const (
	WatchlistCollection = "watchlists"
	UserCollection      = "user"
	SessionCollection   = "session"
)

type watchlistDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	UserID  string             `bson:"userId"`
	Symbol  string             `bson:"symbol"`
	Company string             `bson:"company"`
	AddedAt time.Time          `bson:"addedAt"`
}

type sessionDoc struct {
	Token     string    `bson:"token"`
	UserID    any       `bson:"userId"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Mongo is a Backend on MongoDB.
type Mongo struct {
	watchlists *mongo.Collection
	users      *mongo.Collection
	sessions   *mongo.Collection
}

// ConnectMongo dials and pings uri.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info().Msg("mongo connected")
	return client, nil
}

// NewMongo binds to db and ensures the unique (userId, symbol) index.
func NewMongo(ctx context.Context, db *mongo.Database) (*Mongo, error) {
	m := &Mongo{
		watchlists: db.Collection(WatchlistCollection),
		users:      db.Collection(UserCollection),
		sessions:   db.Collection(SessionCollection),
	}
	_, err := m.watchlists.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "symbol", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "addedAt", Value: -1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create watchlist indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) Insert(ctx context.Context, e types.WatchlistEntry) error {
	_, err := m.watchlists.InsertOne(ctx, watchlistDoc{
		UserID:  e.UserID,
		Symbol:  e.Symbol,
		Company: e.Company,
		AddedAt: e.AddedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, userID, symbol string) (int64, error) {
	res, err := m.watchlists.DeleteOne(ctx, bson.M{"userId": userID, "symbol": symbol})
	if err != nil {
		return 0, fmt.Errorf("delete watchlist: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) FindByUser(ctx context.Context, userID string) ([]types.WatchlistEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "addedAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.watchlists.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find watchlist: %w", err)
	}
	var docs []watchlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	entries := make([]types.WatchlistEntry, len(docs))
	for i, d := range docs {
		entries[i] = types.WatchlistEntry{
			UserID:  d.UserID,
			Symbol:  d.Symbol,
			Company: d.Company,
			AddedAt: d.AddedAt,
		}
	}
	return entries, nil
}

func (m *Mongo) FindSymbols(ctx context.Context, userID string, symbols []string) ([]string, error) {
	filter := bson.M{"userId": userID, "symbol": bson.M{"$in": symbols}}
	cur, err := m.watchlists.Find(ctx, filter, options.Find().SetProjection(bson.M{"symbol": 1}))
	if err != nil {
		return nil, fmt.Errorf("find symbols: %w", err)
	}
	var docs []watchlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode symbols: %w", err)
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Symbol
	}
	return out, nil
}

func (m *Mongo) Exists(ctx context.Context, userID, symbol string) (bool, error) {
	n, err := m.watchlists.CountDocuments(ctx,
		bson.M{"userId": userID, "symbol": symbol},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count watchlist: %w", err)
	}
	return n > 0, nil
}

// UserIDByEmail prefers the provider's string "id" field and falls back
// to the document _id.
func (m *Mongo) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var doc bson.M
	err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if id := idString(doc["id"]); id != "" {
		return id, nil
	}
	return idString(doc["_id"]), nil
}

// FindSession returns the session for token, or nil when there is none.
func (m *Mongo) FindSession(ctx context.Context, token string) (*types.Session, error) {
	var doc sessionDoc
	err := m.sessions.FindOne(ctx, bson.M{"token": token}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &types.Session{
		Token:     doc.Token,
		UserID:    idString(doc.UserID),
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

var _ Backend = (*Mongo)(nil)
