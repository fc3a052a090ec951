package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Subscription means Subscriber follows Channel. The pair is unique.
type Subscription struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Channel    bson.ObjectID `bson:"channel" json:"channel"`
	Subscriber bson.ObjectID `bson:"subscriber" json:"subscriber"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}
