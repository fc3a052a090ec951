package database

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// testStore connects to MONGODB_TEST_URI and returns a store over a throwaway
// database. The test is skipped when the variable is unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("videotube_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	if err := EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewStore(db)
}

func newUser(username string) models.User {
	now := time.Now().UTC()
	return models.User{
		ID:           bson.NewObjectID(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     strings.ToUpper(username),
		Avatar:       "https://cdn.example.com/" + username + ".png",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CreateAndConflict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	alice := newUser("alice")
	if err := store.Users.Create(ctx, alice); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := newUser("alice")
	if err := store.Users.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	found, err := store.Users.FindByLogin(ctx, "", "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != alice.ID {
		t.Fatalf("expected %s got %s", alice.ID.Hex(), found.ID.Hex())
	}

	public, err := store.Users.FindPublicByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find public: %v", err)
	}
	if public.PasswordHash != "" {
		t.Fatal("public read must not load the password hash")
	}

	if _, err := store.Users.FindByID(ctx, bson.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserRepository_SwapRefreshToken(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newUser("bob")
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Users.SetRefreshToken(ctx, user.ID, "token-a"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}

	if err := store.Users.SwapRefreshToken(ctx, user.ID, "token-a", "token-b"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := store.Users.SwapRefreshToken(ctx, user.ID, "token-a", "token-c"); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected stale write, got %v", err)
	}

	if err := store.Users.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err := store.Users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatalf("expected cleared token, got %q", stored.RefreshToken)
	}
}

func TestUserRepository_PushWatchHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user := newUser("carol")
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	v1, v2 := bson.NewObjectID(), bson.NewObjectID()
	for _, id := range []bson.ObjectID{v1, v2, v1} {
		if err := store.Users.PushWatchHistory(ctx, user.ID, id); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	stored, err := store.Users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(stored.WatchHistory) != 2 || stored.WatchHistory[0] != v1 || stored.WatchHistory[1] != v2 {
		t.Fatalf("unexpected history %v", stored.WatchHistory)
	}
}

func TestLikeRepository_UniquePerTarget(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	by := bson.NewObjectID()
	videoTarget, _ := models.NewLikeTarget(models.LikeVideo, bson.NewObjectID())
	commentTarget, _ := models.NewLikeTarget(models.LikeComment, bson.NewObjectID())

	for _, target := range []models.LikeTarget{videoTarget, commentTarget} {
		like, err := models.NewLike(target, by, time.Now().UTC())
		if err != nil {
			t.Fatalf("new like: %v", err)
		}
		if err := store.Likes.Insert(ctx, like); err != nil {
			t.Fatalf("insert %s like: %v", target.Kind(), err)
		}
	}

	again, _ := models.NewLike(videoTarget, by, time.Now().UTC())
	if err := store.Likes.Insert(ctx, again); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	removed, err := store.Likes.Delete(ctx, videoTarget, by)
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	n, err := store.Likes.Count(ctx, commentTarget)
	if err != nil || n != 1 {
		t.Fatalf("expected the comment like to remain: n=%d err=%v", n, err)
	}
}

func TestSubscriptionRepository_Unique(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sub := models.Subscription{ID: bson.NewObjectID(), Channel: bson.NewObjectID(), Subscriber: bson.NewObjectID(), CreatedAt: time.Now().UTC()}
	if err := store.Subscriptions.Insert(ctx, sub); err != nil {
		t.Fatalf("insert: %v", err)
	}
	sub.ID = bson.NewObjectID()
	if err := store.Subscriptions.Insert(ctx, sub); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPlaylistRepository_AddVideoIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	playlist := models.Playlist{ID: bson.NewObjectID(), Name: "mix", Owner: bson.NewObjectID(), CreatedAt: time.Now().UTC()}
	if err := store.Playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create: %v", err)
	}

	videoID := bson.NewObjectID()
	for i := 0; i < 2; i++ {
		if _, err := store.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
			t.Fatalf("add video: %v", err)
		}
	}
	got, err := store.Playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Videos) != 1 {
		t.Fatalf("expected one video, got %v", got.Videos)
	}

	if _, err := store.Playlists.AddVideo(ctx, bson.NewObjectID(), videoID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommentLikesRemovedWithVideoComments(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	videoID, otherVideo := bson.NewObjectID(), bson.NewObjectID()
	now := time.Now().UTC()
	var onVideo []bson.ObjectID
	var elsewhere bson.ObjectID
	for i, video := range []bson.ObjectID{videoID, videoID, otherVideo} {
		c := models.Comment{ID: bson.NewObjectID(), Content: "c", Video: video, Owner: bson.NewObjectID(), CreatedAt: now.Add(time.Duration(i) * time.Second)}
		if err := store.Comments.Create(ctx, c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
		target, _ := models.NewLikeTarget(models.LikeComment, c.ID)
		like, _ := models.NewLike(target, bson.NewObjectID(), now)
		if err := store.Likes.Insert(ctx, like); err != nil {
			t.Fatalf("like comment: %v", err)
		}
		if video == videoID {
			onVideo = append(onVideo, c.ID)
		} else {
			elsewhere = c.ID
		}
	}

	ids, err := store.Comments.IDsByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("ids by video: %v", err)
	}
	if len(ids) != len(onVideo) {
		t.Fatalf("ids = %v, want %v", ids, onVideo)
	}
	if err := store.Likes.DeleteByTargets(ctx, models.LikeComment, ids); err != nil {
		t.Fatalf("delete likes: %v", err)
	}

	for _, id := range onVideo {
		target, _ := models.NewLikeTarget(models.LikeComment, id)
		if n, err := store.Likes.Count(ctx, target); err != nil || n != 0 {
			t.Fatalf("likes left on %s: n=%d err=%v", id.Hex(), n, err)
		}
	}
	kept, _ := models.NewLikeTarget(models.LikeComment, elsewhere)
	if n, err := store.Likes.Count(ctx, kept); err != nil || n != 1 {
		t.Fatalf("like on another video's comment must stay: n=%d err=%v", n, err)
	}
}

func TestLikeRepository_RejectsMalformedLike(t *testing.T) {
	store := testStore(t)
	videoID, commentID := bson.NewObjectID(), bson.NewObjectID()
	both := models.Like{ID: bson.NewObjectID(), Video: &videoID, Comment: &commentID, LikeBy: bson.NewObjectID()}

	if err := store.Likes.Insert(context.Background(), both); !errors.Is(err, models.ErrInvalidLikeTarget) {
		t.Fatalf("expected invalid like target, got %v", err)
	}
}
