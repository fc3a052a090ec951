package database

import (
	"context"
	"fmt"

	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type LikeRepository struct {
	col *mongo.Collection
}

func likeFilter(target models.LikeTarget, by bson.ObjectID) bson.M {
	return bson.M{"likeBy": by, target.Field(): target.ID()}
}

// Insert stores like. A second like of the same target by the same user
// returns ErrConflict.
func (r *LikeRepository) Insert(ctx context.Context, like models.Like) error {
	if _, err := like.Target(); err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, like); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Delete removes the like and reports whether one existed.
func (r *LikeRepository) Delete(ctx context.Context, target models.LikeTarget, by bson.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, likeFilter(target, by))
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *LikeRepository) DeleteByTarget(ctx context.Context, target models.LikeTarget) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{target.Field(): target.ID()}); err != nil {
		return fmt.Errorf("delete likes for %s: %w", target.Kind(), err)
	}
	return nil
}

// DeleteByTargets removes every like on the given ids of one kind.
func (r *LikeRepository) DeleteByTargets(ctx context.Context, kind models.LikeKind, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.col.DeleteMany(ctx, bson.M{kind.Field(): bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete %s likes: %w", kind, err)
	}
	return nil
}

func (r *LikeRepository) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{target.Field(): target.ID()})
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}
