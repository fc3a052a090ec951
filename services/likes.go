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

type LikeStore interface {
	Insert(ctx context.Context, like models.Like) error
	Delete(ctx context.Context, target models.LikeTarget, by bson.ObjectID) (bool, error)
}

type Likes struct {
	likes LikeStore
	// targets holds the existence check per kind. Kinds without an entry,
	// such as tweets, are not checked.
	targets map[models.LikeKind]Existence
	now     func() time.Time
}

func NewLikes(likes LikeStore, videos, comments Existence) *Likes {
	return &Likes{
		likes:   likes,
		targets: map[models.LikeKind]Existence{models.LikeVideo: videos, models.LikeComment: comments},
		now:     time.Now,
	}
}

// Toggle likes the target or removes an existing like, and reports whether
// the target is liked afterwards.
func (s *Likes) Toggle(ctx context.Context, userID bson.ObjectID, kind models.LikeKind, rawID string) (bool, error) {
	id, err := parseID(rawID, string(kind))
	if err != nil {
		return false, err
	}
	target, err := models.NewLikeTarget(kind, id)
	if err != nil {
		return false, apierror.ValidationError(err.Error())
	}
	if check, ok := s.targets[kind]; ok && check != nil {
		if err := exists(ctx, check, id, string(kind)); err != nil {
			return false, err
		}
	}

	removed, err := s.likes.Delete(ctx, target, userID)
	if err != nil {
		return false, storeErr(err, "like")
	}
	if removed {
		return false, nil
	}

	like, err := models.NewLike(target, userID, s.now().UTC())
	if err != nil {
		return false, apierror.ValidationError(err.Error())
	}
	// A concurrent request may have inserted the same like first.
	if err := s.likes.Insert(ctx, like); err != nil && !errors.Is(err, database.ErrConflict) {
		return false, storeErr(err, "like")
	}
	return true, nil
}
