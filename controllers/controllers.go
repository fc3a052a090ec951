// Package controllers holds the gin handlers of the /api/v1 surface. Handlers
// bind the request, call a service and render the response envelope.
package controllers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/queries"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type SessionService interface {
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID bson.ObjectID, oldPassword, newPassword string) error
}

type UserService interface {
	Register(ctx context.Context, in dto.RegisterDTO) (models.User, error)
	Login(ctx context.Context, in dto.LoginDTO) (models.User, models.SessionTokens, error)
	Logout(ctx context.Context, userID bson.ObjectID) error
	Current(ctx context.Context, userID bson.ObjectID) (models.User, error)
	UpdateAccount(ctx context.Context, userID bson.ObjectID, in dto.UpdateAccountDTO) (models.User, error)
	UpdateAvatar(ctx context.Context, userID bson.ObjectID, fh *multipart.FileHeader) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID bson.ObjectID, fh *multipart.FileHeader) (models.User, error)
}

type QueryService interface {
	ListVideos(ctx context.Context, viewerID bson.ObjectID, in queries.VideoListInput) (queries.Page[models.VideoWithOwner], error)
	ListComments(ctx context.Context, rawVideoID, rawPage, rawLimit string) (queries.Page[models.CommentWithOwner], error)
	ChannelProfile(ctx context.Context, username string, viewerID bson.ObjectID) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID bson.ObjectID) ([]models.VideoWithOwner, error)
	ListUserPlaylists(ctx context.Context, rawUserID, rawPage, rawLimit string) (queries.Page[models.PlaylistSummary], error)
	LikedVideos(ctx context.Context, userID bson.ObjectID, rawPage, rawLimit string) (queries.Page[models.VideoWithOwner], error)
}

type VideoService interface {
	Publish(ctx context.Context, owner bson.ObjectID, in dto.PublishVideoDTO) (models.Video, error)
	Get(ctx context.Context, viewerID bson.ObjectID, rawID string) (models.VideoDetail, error)
	Update(ctx context.Context, userID bson.ObjectID, rawID string, in dto.UpdateVideoDTO) (models.Video, error)
	Delete(ctx context.Context, userID bson.ObjectID, rawID string) error
	TogglePublish(ctx context.Context, userID bson.ObjectID, rawID string) (models.Video, error)
}

type CommentService interface {
	Add(ctx context.Context, userID bson.ObjectID, rawVideoID, content string) (models.Comment, error)
	Update(ctx context.Context, userID bson.ObjectID, rawCommentID, content string) (models.Comment, error)
	Delete(ctx context.Context, userID bson.ObjectID, rawCommentID string) error
}

type PlaylistService interface {
	Create(ctx context.Context, owner bson.ObjectID, in dto.CreatePlaylistDTO) (models.Playlist, error)
	Get(ctx context.Context, rawID string) (models.Playlist, error)
	Update(ctx context.Context, userID bson.ObjectID, rawID string, in dto.UpdatePlaylistDTO) (models.Playlist, error)
	Delete(ctx context.Context, userID bson.ObjectID, rawID string) error
	AddVideo(ctx context.Context, userID bson.ObjectID, rawPlaylistID, rawVideoID string) (models.Playlist, error)
	RemoveVideo(ctx context.Context, userID bson.ObjectID, rawPlaylistID, rawVideoID string) (models.Playlist, error)
}

type LikeService interface {
	Toggle(ctx context.Context, userID bson.ObjectID, kind models.LikeKind, rawID string) (bool, error)
}

type SubscriptionService interface {
	Toggle(ctx context.Context, subscriberID bson.ObjectID, rawChannelID string) (bool, error)
}

// bind decodes the request into obj. Bodies that fail to parse become
// validation errors carrying the binder's message.
func bind(c *gin.Context, obj any) error {
	if err := c.ShouldBind(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.ValidationError("request body is required")
		}
		return apierror.ValidationError("invalid request body", err.Error())
	}
	return nil
}
