package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/media"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mp4Bytes = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
)

func formFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(10 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   []string
	destroyed []string
	uploadErr error
}

func (s *fakeStorage) Upload(_ context.Context, folder string, f media.File) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return media.Asset{}, s.uploadErr
	}
	if _, err := io.ReadAll(f.Body); err != nil {
		return media.Asset{}, err
	}
	url := "https://media.test/" + folder + "/" + f.Name
	s.uploads = append(s.uploads, url)
	return media.Asset{URL: url, Duration: f.Duration}, nil
}

func (s *fakeStorage) Destroy(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = append(s.destroyed, url)
	return nil
}

func (s *fakeStorage) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads) + len(s.destroyed)
}

func newUploads(storage *fakeStorage) *Uploads {
	return NewUploads(storage, media.NewImageValidator(1), media.NewVideoValidator(1))
}

type memUsers struct {
	mu        sync.Mutex
	byID      map[bson.ObjectID]models.User
	createErr error
	history   map[bson.ObjectID][]bson.ObjectID
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byID: map[bson.ObjectID]models.User{}, history: map[bson.ObjectID][]bson.ObjectID{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return database.ErrConflict
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id bson.ObjectID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, database.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindPublicByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	u, err := m.FindByID(ctx, id)
	return u.Public(), err
}

func (m *memUsers) FindByLogin(_ context.Context, username, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return u, nil
		}
	}
	return models.User{}, database.ErrNotFound
}

func (m *memUsers) Exists(_ context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memUsers) UpdateFields(_ context.Context, id bson.ObjectID, set bson.M) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, database.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "fullName":
			u.FullName = v.(string)
		case "email":
			u.Email = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "coverImage":
			u.CoverImage = v.(string)
		}
	}
	m.byID[id] = u
	return u.Public(), nil
}

func (m *memUsers) PushWatchHistory(_ context.Context, userID, videoID bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rest := slices.DeleteFunc(m.history[userID], func(id bson.ObjectID) bool { return id == videoID })
	m.history[userID] = append([]bson.ObjectID{videoID}, rest...)
	return nil
}

type fakeSessions struct {
	issued      []bson.ObjectID
	invalidated []bson.ObjectID
}

func (f *fakeSessions) IssueTokens(_ context.Context, userID bson.ObjectID) (models.SessionTokens, error) {
	f.issued = append(f.issued, userID)
	return models.SessionTokens{AccessToken: "access-" + userID.Hex(), RefreshToken: "refresh-" + userID.Hex()}, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, userID bson.ObjectID) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

type memVideos struct {
	mu     sync.Mutex
	byID   map[bson.ObjectID]models.Video
	writes int
}

func newMemVideos(videos ...models.Video) *memVideos {
	m := &memVideos{byID: map[bson.ObjectID]models.Video{}}
	for _, v := range videos {
		m.byID[v.ID] = v
	}
	return m
}

func (m *memVideos) Create(_ context.Context, video models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.byID[video.ID] = video
	return nil
}

func (m *memVideos) FindByID(_ context.Context, id bson.ObjectID) (models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return models.Video{}, database.ErrNotFound
	}
	return v, nil
}

func (m *memVideos) Exists(_ context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memVideos) Update(_ context.Context, id bson.ObjectID, set bson.M) (models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return models.Video{}, database.ErrNotFound
	}
	m.writes++
	for k, val := range set {
		switch k {
		case "title":
			v.Title = val.(string)
		case "description":
			v.Description = val.(string)
		case "thumbnail":
			v.Thumbnail = val.(string)
		case "isPublished":
			v.IsPublished = val.(bool)
		}
	}
	m.byID[id] = v
	return v, nil
}

func (m *memVideos) IncrementViews(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.byID[id]
	v.Views++
	m.byID[id] = v
	return nil
}

func (m *memVideos) Delete(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	m.writes++
	delete(m.byID, id)
	return nil
}

type fakeDependents struct {
	// steps records the cascade in call order.
	steps []string
	ids   []bson.ObjectID
}

func (f *fakeDependents) record(step string, id bson.ObjectID) error {
	f.steps = append(f.steps, step)
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeDependents) DeleteCommentLikes(_ context.Context, id bson.ObjectID) error {
	return f.record("commentLikes", id)
}

func (f *fakeDependents) DeleteComments(_ context.Context, id bson.ObjectID) error {
	return f.record("comments", id)
}

func (f *fakeDependents) DeleteLikes(_ context.Context, id bson.ObjectID) error {
	return f.record("likes", id)
}

func (f *fakeDependents) PullFromPlaylists(_ context.Context, id bson.ObjectID) error {
	return f.record("playlists", id)
}

func (f *fakeDependents) total() int {
	return len(f.steps)
}

type existence map[bson.ObjectID]bool

func (e existence) Exists(_ context.Context, id bson.ObjectID) (bool, error) {
	return e[id], nil
}

type memComments struct {
	byID map[bson.ObjectID]models.Comment
}

func (m *memComments) Create(_ context.Context, c models.Comment) error {
	m.byID[c.ID] = c
	return nil
}

func (m *memComments) FindByID(_ context.Context, id bson.ObjectID) (models.Comment, error) {
	c, ok := m.byID[id]
	if !ok {
		return models.Comment{}, database.ErrNotFound
	}
	return c, nil
}

func (m *memComments) UpdateContent(_ context.Context, id bson.ObjectID, content string) (models.Comment, error) {
	c, ok := m.byID[id]
	if !ok {
		return models.Comment{}, database.ErrNotFound
	}
	c.Content = content
	m.byID[id] = c
	return c, nil
}

func (m *memComments) Delete(_ context.Context, id bson.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memPlaylists struct {
	byID map[bson.ObjectID]models.Playlist
}

func (m *memPlaylists) Create(_ context.Context, p models.Playlist) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memPlaylists) FindByID(_ context.Context, id bson.ObjectID) (models.Playlist, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Playlist{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memPlaylists) Update(_ context.Context, id bson.ObjectID, set bson.M) (models.Playlist, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Playlist{}, database.ErrNotFound
	}
	if name, ok := set["name"].(string); ok {
		p.Name = name
	}
	if desc, ok := set["description"].(string); ok {
		p.Description = desc
	}
	m.byID[id] = p
	return p, nil
}

func (m *memPlaylists) AddVideo(_ context.Context, id, videoID bson.ObjectID) (models.Playlist, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Playlist{}, database.ErrNotFound
	}
	if !slices.Contains(p.Videos, videoID) {
		p.Videos = append(p.Videos, videoID)
	}
	m.byID[id] = p
	return p, nil
}

func (m *memPlaylists) RemoveVideo(_ context.Context, id, videoID bson.ObjectID) (models.Playlist, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Playlist{}, database.ErrNotFound
	}
	p.Videos = slices.DeleteFunc(p.Videos, func(v bson.ObjectID) bool { return v == videoID })
	m.byID[id] = p
	return p, nil
}

func (m *memPlaylists) Delete(_ context.Context, id bson.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type likeKey struct {
	field string
	id    bson.ObjectID
	by    bson.ObjectID
}

type memLikes struct {
	set map[likeKey]bool
	// insertConflict simulates another request winning the insert.
	insertConflict bool
	cleared        []models.LikeTarget
}

func (m *memLikes) Insert(_ context.Context, like models.Like) error {
	if m.insertConflict {
		return database.ErrConflict
	}
	target, err := like.Target()
	if err != nil {
		return err
	}
	k := likeKey{target.Field(), target.ID(), like.LikeBy}
	if m.set[k] {
		return database.ErrConflict
	}
	m.set[k] = true
	return nil
}

func (m *memLikes) Delete(_ context.Context, target models.LikeTarget, by bson.ObjectID) (bool, error) {
	k := likeKey{target.Field(), target.ID(), by}
	if !m.set[k] {
		return false, nil
	}
	delete(m.set, k)
	return true, nil
}

func (m *memLikes) Count(_ context.Context, target models.LikeTarget) (int64, error) {
	var n int64
	for k := range m.set {
		if k.field == target.Field() && k.id == target.ID() {
			n++
		}
	}
	return n, nil
}

func (m *memLikes) DeleteByTarget(_ context.Context, target models.LikeTarget) error {
	m.cleared = append(m.cleared, target)
	return nil
}

type subKey struct{ channel, subscriber bson.ObjectID }

type memSubs struct {
	set map[subKey]bool
}

func (m *memSubs) Insert(_ context.Context, sub models.Subscription) error {
	k := subKey{sub.Channel, sub.Subscriber}
	if m.set[k] {
		return database.ErrConflict
	}
	m.set[k] = true
	return nil
}

func (m *memSubs) Delete(_ context.Context, channel, subscriber bson.ObjectID) (bool, error) {
	k := subKey{channel, subscriber}
	if !m.set[k] {
		return false, nil
	}
	delete(m.set, k)
	return true, nil
}
