package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultPlaylistName = "My Playlist"

type Playlist struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	Videos      []bson.ObjectID `bson:"videos" json:"videos"`
	Owner       bson.ObjectID   `bson:"owner" json:"owner"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (p Playlist) IsOwnedBy(userID bson.ObjectID) bool {
	return !userID.IsZero() && p.Owner == userID
}

// PlaylistSummary is a playlist row in a user's playlist listing.
type PlaylistSummary struct {
	ID          bson.ObjectID `bson:"_id" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	TotalVideos int64         `bson:"totalVideos" json:"totalVideos"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}
