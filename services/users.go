package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/session"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	FindPublicByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdateFields(ctx context.Context, id bson.ObjectID, set bson.M) (models.User, error)
}

// Sessions is the part of session.Manager the account flows need.
type Sessions interface {
	IssueTokens(ctx context.Context, userID bson.ObjectID) (models.SessionTokens, error)
	Invalidate(ctx context.Context, userID bson.ObjectID) error
}

type Users struct {
	users    UserStore
	sessions Sessions
	uploads  *Uploads
	now      func() time.Time
}

func NewUsers(users UserStore, sessions Sessions, uploads *Uploads) *Users {
	return &Users{users: users, sessions: sessions, uploads: uploads, now: time.Now}
}

// Register creates an account. The avatar is uploaded before the user is
// written; the cover image is optional.
func (s *Users) Register(ctx context.Context, in dto.RegisterDTO) (models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return models.User{}, apierror.ValidationError("all fields are required")
	}
	if len(in.Password) < session.MinPasswordLength {
		return models.User{}, apierror.ValidationError("password must be at least 8 characters")
	}
	if in.Avatar == nil {
		return models.User{}, apierror.ValidationError("avatar file is required")
	}

	_, err := s.users.FindByLogin(ctx, username, email)
	switch {
	case err == nil:
		return models.User{}, apierror.ConflictError("user with email or username already exists")
	case !errors.Is(err, database.ErrNotFound):
		return models.User{}, storeErr(err, "user")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apierror.InternalError("failed to hash password", err)
	}

	avatar, err := s.uploads.Image(ctx, AvatarFolder, in.Avatar)
	if err != nil {
		return models.User{}, err
	}
	var cover string
	if in.CoverImage != nil {
		asset, err := s.uploads.Image(ctx, CoverFolder, in.CoverImage)
		if err != nil {
			s.uploads.Discard(ctx, avatar.URL)
			return models.User{}, err
		}
		cover = asset.URL
	}

	now := s.now().UTC()
	user := models.User{
		ID:           bson.NewObjectID(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar.URL,
		CoverImage:   cover,
		WatchHistory: []bson.ObjectID{},
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		logOrphans(ctx, err, avatar.URL, cover)
		if errors.Is(err, database.ErrConflict) {
			return models.User{}, apierror.ConflictError("user with email or username already exists")
		}
		return models.User{}, storeErr(err, "user")
	}
	return user.Public(), nil
}

// Login checks the credentials of the account matching username or email and
// opens a new session.
func (s *Users) Login(ctx context.Context, in dto.LoginDTO) (models.User, models.SessionTokens, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return models.User{}, models.SessionTokens{}, apierror.ValidationError("username or email is required")
	}

	user, err := s.users.FindByLogin(ctx, username, email)
	if err != nil {
		return models.User{}, models.SessionTokens{}, storeErr(err, "user")
	}
	if err := utils.CheckPassword(user.PasswordHash, in.Password); err != nil {
		return models.User{}, models.SessionTokens{}, apierror.UnauthorizedError("invalid user credentials", nil)
	}

	tokens, err := s.sessions.IssueTokens(ctx, user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}
	return user.Public(), tokens, nil
}

func (s *Users) Logout(ctx context.Context, userID bson.ObjectID) error {
	return s.sessions.Invalidate(ctx, userID)
}

func (s *Users) Current(ctx context.Context, userID bson.ObjectID) (models.User, error) {
	user, err := s.users.FindPublicByID(ctx, userID)
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}
	return user, nil
}

func (s *Users) UpdateAccount(ctx context.Context, userID bson.ObjectID, in dto.UpdateAccountDTO) (models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || email == "" {
		return models.User{}, apierror.ValidationError("fullName and email are required")
	}

	user, err := s.users.UpdateFields(ctx, userID, bson.M{"fullName": fullName, "email": email})
	if errors.Is(err, database.ErrConflict) {
		return models.User{}, apierror.ConflictError("email is already in use")
	}
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}
	return user, nil
}

func (s *Users) UpdateAvatar(ctx context.Context, userID bson.ObjectID, fh *multipart.FileHeader) (models.User, error) {
	if fh == nil {
		return models.User{}, apierror.ValidationError("avatar file is missing")
	}
	return s.replaceImage(ctx, userID, "avatar", AvatarFolder, fh, func(u models.User) string { return u.Avatar })
}

func (s *Users) UpdateCoverImage(ctx context.Context, userID bson.ObjectID, fh *multipart.FileHeader) (models.User, error) {
	if fh == nil {
		return models.User{}, apierror.ValidationError("cover image file is missing")
	}
	return s.replaceImage(ctx, userID, "coverImage", CoverFolder, fh, func(u models.User) string { return u.CoverImage })
}

// replaceImage uploads the new image, points field at it and then destroys the
// previous one.
func (s *Users) replaceImage(ctx context.Context, userID bson.ObjectID, field, folder string, fh *multipart.FileHeader, current func(models.User) string) (models.User, error) {
	before, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}

	asset, err := s.uploads.Image(ctx, folder, fh)
	if err != nil {
		return models.User{}, err
	}

	after, err := s.users.UpdateFields(ctx, userID, bson.M{field: asset.URL})
	if err != nil {
		logOrphans(ctx, err, asset.URL)
		return models.User{}, storeErr(err, "user")
	}
	s.uploads.Discard(ctx, current(before))
	return after, nil
}
