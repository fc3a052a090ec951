package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Video struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	VideoFile   string        `bson:"videoFile" json:"videoFile"`
	Thumbnail   string        `bson:"thumbnail" json:"thumbnail"`
	Duration    float64       `bson:"duration" json:"duration"`
	Views       int64         `bson:"views" json:"views"`
	IsPublished bool          `bson:"isPublished" json:"isPublished"`
	Owner       bson.ObjectID `bson:"owner" json:"owner"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// VideoWithOwner is a video row with its owner joined in. Owner is nil when
// the referenced user no longer exists.
type VideoWithOwner struct {
	ID          bson.ObjectID `bson:"_id" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	VideoFile   string        `bson:"videoFile" json:"videoFile"`
	Thumbnail   string        `bson:"thumbnail" json:"thumbnail"`
	Duration    float64       `bson:"duration" json:"duration"`
	Views       int64         `bson:"views" json:"views"`
	IsPublished bool          `bson:"isPublished" json:"isPublished"`
	Owner       *OwnerProfile `bson:"owner,omitempty" json:"owner"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// VideoDetail is a single video as returned to a viewer.
type VideoDetail struct {
	Video
	LikesCount int64 `json:"likesCount"`
}

// IsOwnedBy reports whether userID may mutate the video.
func (v Video) IsOwnedBy(userID bson.ObjectID) bool {
	return !userID.IsZero() && v.Owner == userID
}
