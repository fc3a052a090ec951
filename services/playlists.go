package services

import (
	"context"
	"strings"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.Playlist, error)
	Update(ctx context.Context, id bson.ObjectID, set bson.M) (models.Playlist, error)
	AddVideo(ctx context.Context, id, videoID bson.ObjectID) (models.Playlist, error)
	RemoveVideo(ctx context.Context, id, videoID bson.ObjectID) (models.Playlist, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

type Playlists struct {
	playlists PlaylistStore
	videos    Existence
	now       func() time.Time
}

func NewPlaylists(playlists PlaylistStore, videos Existence) *Playlists {
	return &Playlists{playlists: playlists, videos: videos, now: time.Now}
}

// Create stores an empty playlist. A blank name falls back to
// models.DefaultPlaylistName.
func (s *Playlists) Create(ctx context.Context, owner bson.ObjectID, in dto.CreatePlaylistDTO) (models.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.DefaultPlaylistName
	}
	now := s.now().UTC()
	playlist := models.Playlist{
		ID:          bson.NewObjectID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Videos:      []bson.ObjectID{},
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.playlists.Create(ctx, playlist); err != nil {
		return models.Playlist{}, storeErr(err, "playlist")
	}
	return playlist, nil
}

func (s *Playlists) Get(ctx context.Context, rawID string) (models.Playlist, error) {
	id, err := parseID(rawID, "playlist")
	if err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.playlists.FindByID(ctx, id)
	if err != nil {
		return models.Playlist{}, storeErr(err, "playlist")
	}
	return playlist, nil
}

func (s *Playlists) Update(ctx context.Context, userID bson.ObjectID, rawID string, in dto.UpdatePlaylistDTO) (models.Playlist, error) {
	set := bson.M{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.Playlist{}, apierror.ValidationError("name cannot be empty")
		}
		set["name"] = name
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if len(set) == 0 {
		return models.Playlist{}, apierror.ValidationError("nothing to update")
	}

	playlist, err := s.owned(ctx, userID, rawID)
	if err != nil {
		return models.Playlist{}, err
	}
	updated, err := s.playlists.Update(ctx, playlist.ID, set)
	if err != nil {
		return models.Playlist{}, storeErr(err, "playlist")
	}
	return updated, nil
}

func (s *Playlists) Delete(ctx context.Context, userID bson.ObjectID, rawID string) error {
	playlist, err := s.owned(ctx, userID, rawID)
	if err != nil {
		return err
	}
	return storeErr(s.playlists.Delete(ctx, playlist.ID), "playlist")
}

// AddVideo appends the video unless the playlist already holds it.
func (s *Playlists) AddVideo(ctx context.Context, userID bson.ObjectID, rawPlaylistID, rawVideoID string) (models.Playlist, error) {
	videoID, err := parseID(rawVideoID, "video")
	if err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.owned(ctx, userID, rawPlaylistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if err := exists(ctx, s.videos, videoID, "video"); err != nil {
		return models.Playlist{}, err
	}
	updated, err := s.playlists.AddVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return models.Playlist{}, storeErr(err, "playlist")
	}
	return updated, nil
}

func (s *Playlists) RemoveVideo(ctx context.Context, userID bson.ObjectID, rawPlaylistID, rawVideoID string) (models.Playlist, error) {
	videoID, err := parseID(rawVideoID, "video")
	if err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.owned(ctx, userID, rawPlaylistID)
	if err != nil {
		return models.Playlist{}, err
	}
	updated, err := s.playlists.RemoveVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return models.Playlist{}, storeErr(err, "playlist")
	}
	return updated, nil
}

func (s *Playlists) owned(ctx context.Context, userID bson.ObjectID, rawID string) (models.Playlist, error) {
	playlist, err := s.Get(ctx, rawID)
	if err != nil {
		return models.Playlist{}, err
	}
	if !playlist.IsOwnedBy(userID) {
		return models.Playlist{}, apierror.ForbiddenError("only the owner can modify this playlist")
	}
	return playlist, nil
}
