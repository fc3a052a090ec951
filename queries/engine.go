// Package queries builds the aggregation pipelines behind every listing and
// runs them against the document store.
package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Aggregator runs a pipeline on a collection and decodes every result into out.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) error
}

type MongoAggregator struct {
	DB *mongo.Database
}

func (a MongoAggregator) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any) error {
	cursor, err := a.DB.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Existence reports whether a document with the given id exists.
type Existence interface {
	Exists(ctx context.Context, id bson.ObjectID) (bool, error)
}

type Limits struct {
	Default int
	Max     int
}

type Engine struct {
	agg    Aggregator
	users  Existence
	videos Existence
	limits Limits
}

func NewEngine(agg Aggregator, users, videos Existence, limits Limits) *Engine {
	return &Engine{agg: agg, users: users, videos: videos, limits: limits}
}

// VideoListInput holds the raw query string values of a video listing.
type VideoListInput struct {
	Page     string
	Limit    string
	Query    string
	SortBy   string
	SortType string
	UserID   string
}

func (e *Engine) pageRequest(page, limit string) (PageRequest, error) {
	return ParsePageRequest(page, limit, e.limits.Default, e.limits.Max)
}

// ListVideos searches titles and descriptions for Query or lists the videos
// of UserID. A well-formed UserID that matches no user contributes nothing to
// the filter.
func (e *Engine) ListVideos(ctx context.Context, viewerID bson.ObjectID, in VideoListInput) (Page[models.VideoWithOwner], error) {
	page, err := e.pageRequest(in.Page, in.Limit)
	if err != nil {
		return Page[models.VideoWithOwner]{}, err
	}
	sort, err := ParseSort(in.SortBy, in.SortType)
	if err != nil {
		return Page[models.VideoWithOwner]{}, err
	}

	query := strings.TrimSpace(in.Query)
	rawUserID := strings.TrimSpace(in.UserID)
	if query == "" && rawUserID == "" {
		return Page[models.VideoWithOwner]{}, apierror.ValidationError("query or userId is required")
	}

	params := VideoListParams{Query: query, ViewerID: viewerID, Sort: sort, Page: page}
	if rawUserID != "" {
		ownerID, err := bson.ObjectIDFromHex(rawUserID)
		if err != nil {
			return Page[models.VideoWithOwner]{}, apierror.ValidationError("invalid userId")
		}
		exists, err := e.users.Exists(ctx, ownerID)
		if err != nil {
			return Page[models.VideoWithOwner]{}, queryFailed(err)
		}
		if exists {
			params.OwnerID = &ownerID
		}
	}
	if params.Query == "" && params.OwnerID == nil {
		return NewPage[models.VideoWithOwner](nil, 0, page), nil
	}

	return runPage[models.VideoWithOwner](ctx, e.agg, database.VideosCollection, VideoListPipeline(params), page)
}

func (e *Engine) ListComments(ctx context.Context, rawVideoID, rawPage, rawLimit string) (Page[models.CommentWithOwner], error) {
	videoID, err := bson.ObjectIDFromHex(strings.TrimSpace(rawVideoID))
	if err != nil {
		return Page[models.CommentWithOwner]{}, apierror.ValidationError("invalid videoId")
	}
	page, err := e.pageRequest(rawPage, rawLimit)
	if err != nil {
		return Page[models.CommentWithOwner]{}, err
	}

	exists, err := e.videos.Exists(ctx, videoID)
	if err != nil {
		return Page[models.CommentWithOwner]{}, queryFailed(err)
	}
	if !exists {
		return Page[models.CommentWithOwner]{}, apierror.NotFoundError("video not found")
	}

	return runPage[models.CommentWithOwner](ctx, e.agg, database.CommentsCollection, CommentListPipeline(videoID, page), page)
}

func (e *Engine) ChannelProfile(ctx context.Context, username string, viewerID bson.ObjectID) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apierror.ValidationError("username is missing")
	}

	var channels []models.ChannelProfile
	if err := e.agg.Aggregate(ctx, database.UsersCollection, ChannelProfilePipeline(username, viewerID), &channels); err != nil {
		return models.ChannelProfile{}, queryFailed(err)
	}
	if len(channels) == 0 {
		return models.ChannelProfile{}, apierror.NotFoundError("channel does not exist")
	}
	return channels[0], nil
}

// WatchHistory returns the user's watched videos in history order, most
// recent first. Deleted videos are left out.
func (e *Engine) WatchHistory(ctx context.Context, userID bson.ObjectID) ([]models.VideoWithOwner, error) {
	var rows []watchHistoryResult
	if err := e.agg.Aggregate(ctx, database.UsersCollection, WatchHistoryPipeline(userID), &rows); err != nil {
		return nil, queryFailed(err)
	}
	if len(rows) == 0 {
		return nil, apierror.NotFoundError("user not found")
	}
	return OrderByIDs(rows[0].HistoryIDs, rows[0].Videos, func(v models.VideoWithOwner) bson.ObjectID { return v.ID }), nil
}

func (e *Engine) ListUserPlaylists(ctx context.Context, rawUserID, rawPage, rawLimit string) (Page[models.PlaylistSummary], error) {
	userID, err := bson.ObjectIDFromHex(strings.TrimSpace(rawUserID))
	if err != nil {
		return Page[models.PlaylistSummary]{}, apierror.ValidationError("invalid userId")
	}
	page, err := e.pageRequest(rawPage, rawLimit)
	if err != nil {
		return Page[models.PlaylistSummary]{}, err
	}
	return runPage[models.PlaylistSummary](ctx, e.agg, database.PlaylistsCollection, UserPlaylistsPipeline(userID, page), page)
}

func (e *Engine) LikedVideos(ctx context.Context, userID bson.ObjectID, rawPage, rawLimit string) (Page[models.VideoWithOwner], error) {
	page, err := e.pageRequest(rawPage, rawLimit)
	if err != nil {
		return Page[models.VideoWithOwner]{}, err
	}
	return runPage[models.VideoWithOwner](ctx, e.agg, database.LikesCollection, LikedVideosPipeline(userID, page), page)
}

func runPage[T any](ctx context.Context, agg Aggregator, collection string, pipeline mongo.Pipeline, req PageRequest) (Page[T], error) {
	var rows []facetResult[T]
	if err := agg.Aggregate(ctx, collection, pipeline, &rows); err != nil {
		return Page[T]{}, queryFailed(err)
	}
	if len(rows) == 0 {
		return NewPage[T](nil, 0, req), nil
	}
	return rows[0].page(req), nil
}

func queryFailed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apierror.From(err)
	}
	return apierror.InternalError("failed to run query", err)
}
