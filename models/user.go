package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	FullName     string          `bson:"fullName" json:"fullName"`
	Avatar       string          `bson:"avatar" json:"avatar"`
	CoverImage   string          `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	WatchHistory []bson.ObjectID `bson:"watchHistory" json:"watchHistory"`
	PasswordHash string          `bson:"password" json:"-"`               // never expose
	RefreshToken string          `bson:"refreshToken,omitempty" json:"-"` // single active session
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Public strips the credential fields so the value can be returned to callers.
func (u User) Public() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// OwnerProfile is the projection joined onto videos and comments.
type OwnerProfile struct {
	ID       bson.ObjectID `bson:"_id" json:"id"`
	Username string        `bson:"username" json:"username"`
	FullName string        `bson:"fullName" json:"fullName"`
	Email    string        `bson:"email,omitempty" json:"email,omitempty"`
	Avatar   string        `bson:"avatar" json:"avatar"`
}

// ChannelProfile is a user's public page with subscription counters.
type ChannelProfile struct {
	ID               bson.ObjectID `bson:"_id" json:"id"`
	Username         string        `bson:"username" json:"username"`
	FullName         string        `bson:"fullName" json:"fullName"`
	Email            string        `bson:"email" json:"email"`
	Avatar           string        `bson:"avatar" json:"avatar"`
	CoverImage       string        `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	SubscribersCount int64         `bson:"subscribersCount" json:"subscribersCount"`
	SubscribedCount  int64         `bson:"subscribedCount" json:"subscribedCount"`
	IsSubscribed     bool          `bson:"isSubscribed" json:"isSubscribed"`
}
