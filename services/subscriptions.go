package services

import (
	"context"
	"errors"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type SubscriptionStore interface {
	Insert(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, channel, subscriber bson.ObjectID) (bool, error)
}

type Subscriptions struct {
	subs  SubscriptionStore
	users Existence
	now   func() time.Time
}

func NewSubscriptions(subs SubscriptionStore, users Existence) *Subscriptions {
	return &Subscriptions{subs: subs, users: users, now: time.Now}
}

// Toggle subscribes subscriberID to the channel or cancels the existing
// subscription, and reports whether it is subscribed afterwards.
func (s *Subscriptions) Toggle(ctx context.Context, subscriberID bson.ObjectID, rawChannelID string) (bool, error) {
	channelID, err := parseID(rawChannelID, "channel")
	if err != nil {
		return false, err
	}
	if channelID == subscriberID {
		return false, apierror.ValidationError("cannot subscribe to your own channel")
	}
	if err := exists(ctx, s.users, channelID, "channel"); err != nil {
		return false, err
	}

	removed, err := s.subs.Delete(ctx, channelID, subscriberID)
	if err != nil {
		return false, storeErr(err, "subscription")
	}
	if removed {
		return false, nil
	}

	sub := models.Subscription{
		ID:         bson.NewObjectID(),
		Channel:    channelID,
		Subscriber: subscriberID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Insert(ctx, sub); err != nil && !errors.Is(err, database.ErrConflict) {
		return false, storeErr(err, "subscription")
	}
	return true, nil
}
