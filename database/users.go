package database

import (
	"context"
	"fmt"
	"time"

	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// publicUserProjection hides credentials from every read that leaves the repository.
var publicUserProjection = bson.M{"password": 0, "refreshToken": 0}

type UserRepository struct {
	col *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	if user.WatchHistory == nil {
		user.WatchHistory = []bson.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID loads the full document, credentials included.
func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (r *UserRepository) FindPublicByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	var user models.User
	opts := options.FindOne().SetProjection(publicUserProjection)
	if err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

// FindByLogin matches either the username or the email, whichever is set.
func (r *UserRepository) FindByLogin(ctx context.Context, username, email string) (models.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return models.User{}, ErrNotFound
	}

	var user models.User
	if err := r.col.FindOne(ctx, bson.M{"$or": or}).Decode(&user); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (r *UserRepository) Exists(ctx context.Context, id bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces current with next only while current is still the
// stored value.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "refreshToken": current},
		bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id bson.ObjectID, hash string, revokeSession bool) error {
	update := bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()}}
	if revokeSession {
		update["$unset"] = bson.M{"refreshToken": 1}
	}
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFields applies set and returns the public view of the updated user.
func (r *UserRepository) UpdateFields(ctx context.Context, id bson.ObjectID, set bson.M) (models.User, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(publicUserProjection)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, notFound(err)
	}
	return user, nil
}

// PushWatchHistory moves videoID to the front of the user's history without
// duplicating it.
func (r *UserRepository) PushWatchHistory(ctx context.Context, userID, videoID bson.ObjectID) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"watchHistory": bson.M{"$concatArrays": bson.A{
				bson.A{videoID},
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$watchHistory", bson.A{}}},
					"cond":  bson.M{"$ne": bson.A{"$$this", videoID}},
				}},
			}},
		}}},
	}
	res, err := r.col.UpdateByID(ctx, userID, update)
	if err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
