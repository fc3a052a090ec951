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

type VideoRepository struct {
	col *mongo.Collection
}

func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	if _, err := r.col.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id bson.ObjectID) (models.Video, error) {
	var video models.Video
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		return models.Video{}, notFound(err)
	}
	return video, nil
}

func (r *VideoRepository) Exists(ctx context.Context, id bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count videos: %w", err)
	}
	return n > 0, nil
}

func (r *VideoRepository) Update(ctx context.Context, id bson.ObjectID, set bson.M) (models.Video, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var video models.Video
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&video); err != nil {
		return models.Video{}, notFound(err)
	}
	return video, nil
}

func (r *VideoRepository) IncrementViews(ctx context.Context, id bson.ObjectID) error {
	if _, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"views": 1}}); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
