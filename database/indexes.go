package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Indexes lists the indexes the application relies on, keyed by collection.
func Indexes() map[string][]mongo.IndexModel {
	likeIndex := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys: bson.D{{Key: "likeBy", Value: 1}, {Key: field, Value: 1}},
			Options: options.Index().
				SetName("uniq_like_" + field).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{field: bson.M{"$exists": true}}),
		}
	}

	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("uniq_username").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
		},
		VideosCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("owner_createdAt")},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "video", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("video_createdAt")},
		},
		PlaylistsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}, Options: options.Index().SetName("owner")},
		},
		LikesCollection: {
			likeIndex("video"),
			likeIndex("comment"),
			likeIndex("tweet"),
		},
		SubscriptionsCollection: {
			{
				Keys:    bson.D{{Key: "channel", Value: 1}, {Key: "subscriber", Value: 1}},
				Options: options.Index().SetName("uniq_channel_subscriber").SetUnique(true),
			},
			{Keys: bson.D{{Key: "subscriber", Value: 1}}, Options: options.Index().SetName("subscriber")},
		},
	}
}

// EnsureIndexes creates any missing indexes. Existing ones are left untouched.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range Indexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
