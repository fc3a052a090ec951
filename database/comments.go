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

type CommentRepository struct {
	col *mongo.Collection
}

func (r *CommentRepository) Create(ctx context.Context, comment models.Comment) error {
	if _, err := r.col.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id bson.ObjectID) (models.Comment, error) {
	var comment models.Comment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return models.Comment{}, notFound(err)
	}
	return comment, nil
}

func (r *CommentRepository) Exists(ctx context.Context, id bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count comments: %w", err)
	}
	return n > 0, nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id bson.ObjectID, content string) (models.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now().UTC()}}

	var comment models.Comment
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&comment); err != nil {
		return models.Comment{}, notFound(err)
	}
	return comment, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IDsByVideo lists the ids of the comments on a video.
func (r *CommentRepository) IDsByVideo(ctx context.Context, videoID bson.ObjectID) ([]bson.ObjectID, error) {
	cur, err := r.col.Find(ctx, bson.M{"video": videoID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find video comments: %w", err)
	}
	var rows []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode video comments: %w", err)
	}
	ids := make([]bson.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *CommentRepository) DeleteByVideo(ctx context.Context, videoID bson.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"video": videoID})
	if err != nil {
		return 0, fmt.Errorf("delete video comments: %w", err)
	}
	return res.DeletedCount, nil
}
