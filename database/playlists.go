package database

import (
	"context"
	"fmt"
	"time"

	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type PlaylistRepository struct {
	col *mongo.Collection
}

func (r *PlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	if playlist.Videos == nil {
		playlist.Videos = []bson.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, playlist); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) FindByID(ctx context.Context, id bson.ObjectID) (models.Playlist, error) {
	var playlist models.Playlist
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&playlist); err != nil {
		return models.Playlist{}, notFound(err)
	}
	return playlist, nil
}

func (r *PlaylistRepository) Update(ctx context.Context, id bson.ObjectID, set bson.M) (models.Playlist, error) {
	set["updatedAt"] = time.Now().UTC()
	return r.apply(ctx, id, bson.M{"$set": set})
}

func (r *PlaylistRepository) AddVideo(ctx context.Context, id, videoID bson.ObjectID) (models.Playlist, error) {
	return r.apply(ctx, id, bson.M{
		"$addToSet": bson.M{"videos": videoID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *PlaylistRepository) RemoveVideo(ctx context.Context, id, videoID bson.ObjectID) (models.Playlist, error) {
	return r.apply(ctx, id, bson.M{
		"$pull": bson.M{"videos": videoID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *PlaylistRepository) apply(ctx context.Context, id bson.ObjectID, update bson.M) (models.Playlist, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var playlist models.Playlist
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&playlist); err != nil {
		return models.Playlist{}, notFound(err)
	}
	return playlist, nil
}

func (r *PlaylistRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PullVideoEverywhere removes a deleted video from every playlist.
func (r *PlaylistRepository) PullVideoEverywhere(ctx context.Context, videoID bson.ObjectID) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"videos": videoID}, bson.M{"$pull": bson.M{"videos": videoID}})
	if err != nil {
		return fmt.Errorf("pull video from playlists: %w", err)
	}
	return nil
}
