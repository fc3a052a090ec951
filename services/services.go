// Package services holds the mutating operations behind the HTTP handlers:
// accounts, videos, comments, playlists, likes and subscriptions. Every
// method returns an *apierror.ApiError on failure.
package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/media"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	AvatarFolder    = "videotube/avatars"
	CoverFolder     = "videotube/covers"
	VideoFolder     = "videotube/videos"
	ThumbnailFolder = "videotube/thumbnails"
)

// Existence reports whether a document with the given id exists.
type Existence interface {
	Exists(ctx context.Context, id bson.ObjectID) (bool, error)
}

func parseID(raw, what string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return bson.NilObjectID, apierror.ValidationError("invalid " + what + " id")
	}
	return id, nil
}

// storeErr translates repository errors into API errors. what names the
// document in the message, e.g. "video".
func storeErr(err error, what string) error {
	var apiErr *apierror.ApiError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, database.ErrNotFound):
		return apierror.NotFoundError(what + " not found")
	case errors.Is(err, database.ErrConflict):
		return apierror.ConflictError(what + " already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierror.From(err)
	default:
		return apierror.InternalError("failed to save "+what, err)
	}
}

func exists(ctx context.Context, store Existence, id bson.ObjectID, what string) error {
	ok, err := store.Exists(ctx, id)
	if err != nil {
		return storeErr(err, what)
	}
	if !ok {
		return apierror.NotFoundError(what + " not found")
	}
	return nil
}

// Uploads validates multipart files and sends them to the media host.
type Uploads struct {
	storage media.Storage
	images  *media.Validator
	videos  *media.Validator
}

func NewUploads(storage media.Storage, images, videos *media.Validator) *Uploads {
	return &Uploads{storage: storage, images: images, videos: videos}
}

func (u *Uploads) Image(ctx context.Context, folder string, fh *multipart.FileHeader) (media.Asset, error) {
	return u.put(ctx, folder, u.images, fh, 0)
}

// Video uploads a video file. duration is the client reported length in
// seconds.
func (u *Uploads) Video(ctx context.Context, folder string, fh *multipart.FileHeader, duration float64) (media.Asset, error) {
	return u.put(ctx, folder, u.videos, fh, duration)
}

func (u *Uploads) put(ctx context.Context, folder string, v *media.Validator, fh *multipart.FileHeader, duration float64) (media.Asset, error) {
	f, err := v.Open(fh)
	if err != nil {
		return media.Asset{}, mediaErr(err)
	}
	defer f.Close()
	f.Duration = duration

	asset, err := u.storage.Upload(ctx, folder, f)
	if err != nil {
		return media.Asset{}, mediaErr(err)
	}
	return asset, nil
}

// Discard destroys an asset that is no longer referenced. Failures are
// logged and otherwise ignored.
func (u *Uploads) Discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := u.storage.Destroy(ctx, url); err != nil {
		logging.FromContext(ctx).Error("failed to destroy media", "url", url, "error", err)
	}
}

func mediaErr(err error) error {
	switch {
	case errors.Is(err, media.ErrInvalidFile):
		return apierror.InvalidMedia(strings.TrimPrefix(err.Error(), media.ErrInvalidFile.Error()+": "), err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierror.From(err)
	default:
		return apierror.MediaUploadFailed("failed to upload media", err)
	}
}

// logOrphans records assets that were uploaded but never referenced because
// the document write failed.
func logOrphans(ctx context.Context, cause error, urls ...string) {
	var kept []string
	for _, u := range urls {
		if u != "" {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return
	}
	logging.FromContext(ctx).Error("orphaned media after failed write", "urls", kept, "error", cause)
}
