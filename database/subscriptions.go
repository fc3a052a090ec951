package database

import (
	"context"
	"fmt"

	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type SubscriptionRepository struct {
	col *mongo.Collection
}

func (r *SubscriptionRepository) Insert(ctx context.Context, sub models.Subscription) error {
	if _, err := r.col.InsertOne(ctx, sub); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, channel, subscriber bson.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"channel": channel, "subscriber": subscriber})
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return res.DeletedCount > 0, nil
}
