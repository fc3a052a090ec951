package services

import (
	"context"
	"strings"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.Comment, error)
	UpdateContent(ctx context.Context, id bson.ObjectID, content string) (models.Comment, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

// LikeCleaner drops every like of a target.
type LikeCleaner interface {
	DeleteByTarget(ctx context.Context, target models.LikeTarget) error
}

type Comments struct {
	comments CommentStore
	videos   Existence
	likes    LikeCleaner
	now      func() time.Time
}

func NewComments(comments CommentStore, videos Existence, likes LikeCleaner) *Comments {
	return &Comments{comments: comments, videos: videos, likes: likes, now: time.Now}
}

func (s *Comments) Add(ctx context.Context, userID bson.ObjectID, rawVideoID, content string) (models.Comment, error) {
	videoID, err := parseID(rawVideoID, "video")
	if err != nil {
		return models.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apierror.ValidationError("content is required")
	}
	if err := exists(ctx, s.videos, videoID, "video"); err != nil {
		return models.Comment{}, err
	}

	now := s.now().UTC()
	comment := models.Comment{
		ID:        bson.NewObjectID(),
		Content:   content,
		Video:     videoID,
		Owner:     userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return models.Comment{}, storeErr(err, "comment")
	}
	return comment, nil
}

func (s *Comments) Update(ctx context.Context, userID bson.ObjectID, rawCommentID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apierror.ValidationError("content is required")
	}
	comment, err := s.owned(ctx, userID, rawCommentID)
	if err != nil {
		return models.Comment{}, err
	}
	updated, err := s.comments.UpdateContent(ctx, comment.ID, content)
	if err != nil {
		return models.Comment{}, storeErr(err, "comment")
	}
	return updated, nil
}

func (s *Comments) Delete(ctx context.Context, userID bson.ObjectID, rawCommentID string) error {
	comment, err := s.owned(ctx, userID, rawCommentID)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return storeErr(err, "comment")
	}

	target, err := models.NewLikeTarget(models.LikeComment, comment.ID)
	if err == nil {
		err = s.likes.DeleteByTarget(ctx, target)
	}
	if err != nil {
		logging.FromContext(ctx).Error("failed to delete likes of deleted comment", "commentId", comment.ID.Hex(), "error", err)
	}
	return nil
}

func (s *Comments) owned(ctx context.Context, userID bson.ObjectID, rawID string) (models.Comment, error) {
	id, err := parseID(rawID, "comment")
	if err != nil {
		return models.Comment{}, err
	}
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return models.Comment{}, storeErr(err, "comment")
	}
	if !comment.IsOwnedBy(userID) {
		return models.Comment{}, apierror.ForbiddenError("only the owner can modify this comment")
	}
	return comment, nil
}
