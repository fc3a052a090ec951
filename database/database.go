package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	UsersCollection         = "users"
	VideosCollection        = "videos"
	CommentsCollection      = "comments"
	PlaylistsCollection     = "playlists"
	LikesCollection         = "likes"
	SubscriptionsCollection = "subscriptions"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict indicates the write would violate a unique index.
	ErrConflict = errors.New("document conflict")
	// ErrStaleWrite indicates a compare-and-swap update lost against a newer value.
	ErrStaleWrite = errors.New("stale write")
)

// Connect opens a client against uri and confirms the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	slog.Info("connected to mongodb")
	return client, nil
}

// Store bundles the repositories backed by one database.
type Store struct {
	DB            *mongo.Database
	Users         *UserRepository
	Videos        *VideoRepository
	Comments      *CommentRepository
	Playlists     *PlaylistRepository
	Likes         *LikeRepository
	Subscriptions *SubscriptionRepository
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		DB:            db,
		Users:         &UserRepository{col: db.Collection(UsersCollection)},
		Videos:        &VideoRepository{col: db.Collection(VideosCollection)},
		Comments:      &CommentRepository{col: db.Collection(CommentsCollection)},
		Playlists:     &PlaylistRepository{col: db.Collection(PlaylistsCollection)},
		Likes:         &LikeRepository{col: db.Collection(LikesCollection)},
		Subscriptions: &SubscriptionRepository{col: db.Collection(SubscriptionsCollection)},
	}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
