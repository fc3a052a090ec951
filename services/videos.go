package services

import (
	"context"
	"strings"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/media"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.Video, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.M) (models.Video, error)
	IncrementViews(ctx context.Context, id bson.ObjectID) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// WatchHistory records which videos a user opened.
type WatchHistory interface {
	PushWatchHistory(ctx context.Context, userID, videoID bson.ObjectID) error
}

// LikeCounter counts the likes on a target.
type LikeCounter interface {
	Count(ctx context.Context, target models.LikeTarget) (int64, error)
}

// VideoDependents removes the documents that reference a deleted video.
type VideoDependents interface {
	DeleteCommentLikes(ctx context.Context, videoID bson.ObjectID) error
	DeleteComments(ctx context.Context, videoID bson.ObjectID) error
	DeleteLikes(ctx context.Context, videoID bson.ObjectID) error
	PullFromPlaylists(ctx context.Context, videoID bson.ObjectID) error
}

type Videos struct {
	videos     VideoStore
	history    WatchHistory
	likes      LikeCounter
	dependents VideoDependents
	uploads    *Uploads
	now        func() time.Time
}

func NewVideos(videos VideoStore, history WatchHistory, likes LikeCounter, dependents VideoDependents, uploads *Uploads) *Videos {
	return &Videos{videos: videos, history: history, likes: likes, dependents: dependents, uploads: uploads, now: time.Now}
}

// Publish uploads the video and its thumbnail, then stores the video as
// published.
func (s *Videos) Publish(ctx context.Context, owner bson.ObjectID, in dto.PublishVideoDTO) (models.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return models.Video{}, apierror.ValidationError("title and description are required")
	}
	if in.VideoFile == nil {
		return models.Video{}, apierror.ValidationError("video file is required")
	}
	if in.Thumbnail == nil {
		return models.Video{}, apierror.ValidationError("thumbnail is required")
	}

	file, err := s.uploads.Video(ctx, VideoFolder, in.VideoFile, media.ParseDuration(in.Duration))
	if err != nil {
		return models.Video{}, err
	}
	thumbnail, err := s.uploads.Image(ctx, ThumbnailFolder, in.Thumbnail)
	if err != nil {
		s.uploads.Discard(ctx, file.URL)
		return models.Video{}, err
	}

	now := s.now().UTC()
	video := models.Video{
		ID:          bson.NewObjectID(),
		Title:       title,
		Description: description,
		VideoFile:   file.URL,
		Thumbnail:   thumbnail.URL,
		Duration:    file.Duration,
		IsPublished: true,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		logOrphans(ctx, err, file.URL, thumbnail.URL)
		return models.Video{}, storeErr(err, "video")
	}
	return video, nil
}

// Get returns a video with its like count. Unpublished videos are only
// visible to their owner. When viewerID is set the view is counted and added
// to the viewer's watch history.
func (s *Videos) Get(ctx context.Context, viewerID bson.ObjectID, rawID string) (models.VideoDetail, error) {
	id, err := parseID(rawID, "video")
	if err != nil {
		return models.VideoDetail{}, err
	}
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return models.VideoDetail{}, storeErr(err, "video")
	}
	if !video.IsPublished && !video.IsOwnedBy(viewerID) {
		return models.VideoDetail{}, apierror.NotFoundError("video not found")
	}

	target, err := models.NewLikeTarget(models.LikeVideo, video.ID)
	if err != nil {
		return models.VideoDetail{}, apierror.InternalError("invalid video id", err)
	}
	likes, err := s.likes.Count(ctx, target)
	if err != nil {
		return models.VideoDetail{}, storeErr(err, "video likes")
	}

	if !viewerID.IsZero() {
		s.recordView(ctx, viewerID, &video)
	}
	return models.VideoDetail{Video: video, LikesCount: likes}, nil
}

func (s *Videos) recordView(ctx context.Context, viewerID bson.ObjectID, video *models.Video) {
	logger := logging.FromContext(ctx)
	if err := s.videos.IncrementViews(ctx, video.ID); err != nil {
		logger.Warn("failed to count view", "videoId", video.ID.Hex(), "error", err)
	} else {
		video.Views++
	}
	if err := s.history.PushWatchHistory(ctx, viewerID, video.ID); err != nil {
		logger.Warn("failed to update watch history", "userId", viewerID.Hex(), "error", err)
	}
}

// Update changes the title, description or thumbnail of a video owned by
// userID. A replaced thumbnail is destroyed after the write.
func (s *Videos) Update(ctx context.Context, userID bson.ObjectID, rawID string, in dto.UpdateVideoDTO) (models.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" && description == "" && in.Thumbnail == nil {
		return models.Video{}, apierror.ValidationError("nothing to update")
	}

	video, err := s.owned(ctx, userID, rawID)
	if err != nil {
		return models.Video{}, err
	}

	set := bson.M{}
	if title != "" {
		set["title"] = title
	}
	if description != "" {
		set["description"] = description
	}
	var thumbnail media.Asset
	if in.Thumbnail != nil {
		thumbnail, err = s.uploads.Image(ctx, ThumbnailFolder, in.Thumbnail)
		if err != nil {
			return models.Video{}, err
		}
		set["thumbnail"] = thumbnail.URL
	}

	updated, err := s.videos.Update(ctx, video.ID, set)
	if err != nil {
		logOrphans(ctx, err, thumbnail.URL)
		return models.Video{}, storeErr(err, "video")
	}
	if thumbnail.URL != "" {
		s.uploads.Discard(ctx, video.Thumbnail)
	}
	return updated, nil
}

// Delete removes the video, the documents referencing it and both of its
// assets.
func (s *Videos) Delete(ctx context.Context, userID bson.ObjectID, rawID string) error {
	video, err := s.owned(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		return storeErr(err, "video")
	}

	logger := logging.FromContext(ctx)
	// comment likes go first, they are found through the comments.
	if err := s.dependents.DeleteCommentLikes(ctx, video.ID); err != nil {
		logger.Error("failed to delete comment likes of deleted video", "videoId", video.ID.Hex(), "error", err)
	}
	if err := s.dependents.DeleteComments(ctx, video.ID); err != nil {
		logger.Error("failed to delete comments of deleted video", "videoId", video.ID.Hex(), "error", err)
	}
	if err := s.dependents.DeleteLikes(ctx, video.ID); err != nil {
		logger.Error("failed to delete likes of deleted video", "videoId", video.ID.Hex(), "error", err)
	}
	if err := s.dependents.PullFromPlaylists(ctx, video.ID); err != nil {
		logger.Error("failed to remove deleted video from playlists", "videoId", video.ID.Hex(), "error", err)
	}

	s.uploads.Discard(ctx, video.VideoFile)
	s.uploads.Discard(ctx, video.Thumbnail)
	return nil
}

func (s *Videos) TogglePublish(ctx context.Context, userID bson.ObjectID, rawID string) (models.Video, error) {
	video, err := s.owned(ctx, userID, rawID)
	if err != nil {
		return models.Video{}, err
	}
	updated, err := s.videos.Update(ctx, video.ID, bson.M{"isPublished": !video.IsPublished})
	if err != nil {
		return models.Video{}, storeErr(err, "video")
	}
	return updated, nil
}

// owned loads the video and checks that userID owns it.
func (s *Videos) owned(ctx context.Context, userID bson.ObjectID, rawID string) (models.Video, error) {
	id, err := parseID(rawID, "video")
	if err != nil {
		return models.Video{}, err
	}
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, storeErr(err, "video")
	}
	if !video.IsOwnedBy(userID) {
		return models.Video{}, apierror.ForbiddenError("only the owner can modify this video")
	}
	return video, nil
}

type storeDependents struct {
	store *database.Store
}

// NewVideoDependents cascades video deletes through the Mongo repositories.
func NewVideoDependents(store *database.Store) VideoDependents {
	return storeDependents{store: store}
}

func (d storeDependents) DeleteCommentLikes(ctx context.Context, videoID bson.ObjectID) error {
	ids, err := d.store.Comments.IDsByVideo(ctx, videoID)
	if err != nil {
		return err
	}
	return d.store.Likes.DeleteByTargets(ctx, models.LikeComment, ids)
}

func (d storeDependents) DeleteComments(ctx context.Context, videoID bson.ObjectID) error {
	_, err := d.store.Comments.DeleteByVideo(ctx, videoID)
	return err
}

func (d storeDependents) DeleteLikes(ctx context.Context, videoID bson.ObjectID) error {
	target, err := models.NewLikeTarget(models.LikeVideo, videoID)
	if err != nil {
		return err
	}
	return d.store.Likes.DeleteByTarget(ctx, target)
}

func (d storeDependents) PullFromPlaylists(ctx context.Context, videoID bson.ObjectID) error {
	return d.store.Playlists.PullVideoEverywhere(ctx, videoID)
}
