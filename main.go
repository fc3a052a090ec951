package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/config"
	"github.com/princinho/videotube/controllers"
	"github.com/princinho/videotube/database"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/media"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/queries"
	"github.com/princinho/videotube/services"
	"github.com/princinho/videotube/session"
	"github.com/princinho/videotube/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", "error", err)
		}
	}()

	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	store := database.NewStore(db)

	storage, closeStorage, err := newStorage(ctx, cfg.Media)
	if err != nil {
		return err
	}
	defer closeStorage()

	sessions := session.NewManager(store.Users, session.Config{
		AccessSecret:           cfg.AccessSecret,
		RefreshSecret:          cfg.RefreshSecret,
		AccessTTL:              cfg.AccessTTL,
		RefreshTTL:             cfg.RefreshTTL,
		RevokeOnPasswordChange: cfg.RevokeOnPasswordChange,
	})
	engine := queries.NewEngine(queries.MongoAggregator{DB: db}, store.Users, store.Videos, queries.Limits{
		Default: cfg.DefaultQueryLimit,
		Max:     cfg.MaxQueryLimit,
	})
	uploads := services.NewUploads(
		media.WithRetry(storage, media.Policy{
			MaxAttempts: cfg.Media.MaxAttempts,
			BaseBackoff: cfg.Media.BaseBackoff,
			MaxBackoff:  cfg.Media.MaxBackoff,
		}),
		media.NewImageValidator(cfg.Media.MaxImageSizeMB),
		media.NewVideoValidator(cfg.Media.MaxVideoSizeMB),
	)

	cookies := utils.CookieOptions{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}
	accounts := services.NewUsers(store.Users, sessions, uploads)
	authC := controllers.NewAuthController(accounts, sessions, cookies)
	usersC := controllers.NewUsersController(accounts, engine)
	videosC := controllers.NewVideosController(
		services.NewVideos(store.Videos, store.Users, store.Likes, services.NewVideoDependents(store), uploads), engine)
	commentsC := controllers.NewCommentsController(services.NewComments(store.Comments, store.Videos, store.Likes), engine)
	playlistsC := controllers.NewPlaylistsController(services.NewPlaylists(store.Playlists, store.Videos), engine)
	likesC := controllers.NewLikesController(services.NewLikes(store.Likes, store.Videos, store.Comments), engine)
	subsC := controllers.NewSubscriptionsController(services.NewSubscriptions(store.Subscriptions, store.Users))

	authLimiter := middleware.NewKeyedLimiter(cfg.AuthRateLimitPerMinute, 5, 10*time.Minute)
	requireAuth := middleware.AuthMiddleware(sessions)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	allowedOrigins := map[string]bool{}
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}
	logger.Info("allowed origins", "origins", cfg.AllowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return allowedOrigins[origin] },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.GET("/ping", func(c *gin.Context) {
		utils.Respond(c, http.StatusOK, gin.H{"message": "pong"}, "OK")
	})

	api := r.Group("/api/v1")

	users := api.Group("/users")
	{
		users.POST("/register", middleware.RateLimit(authLimiter, "register"), authC.Register())
		users.POST("/login", middleware.RateLimit(authLimiter, "login"), authC.Login())
		users.POST("/refresh-token", middleware.RateLimit(authLimiter, "refresh"), authC.Refresh())

		users.POST("/logout", requireAuth, authC.Logout())
		users.POST("/change-password", requireAuth, authC.ChangePassword())
		users.GET("/current-user", requireAuth, usersC.CurrentUser())
		users.PATCH("/update-account", requireAuth, usersC.UpdateAccount())
		users.PATCH("/avatar", requireAuth, usersC.UpdateAvatar())
		users.PATCH("/cover-image", requireAuth, usersC.UpdateCoverImage())
		users.GET("/c/:username", requireAuth, usersC.ChannelProfile())
		users.GET("/history", requireAuth, usersC.WatchHistory())
	}

	videos := api.Group("/videos", requireAuth)
	{
		videos.GET("", videosC.List())
		videos.POST("", videosC.Publish())
		videos.GET("/:videoId", videosC.Get())
		videos.PATCH("/:videoId", videosC.Update())
		videos.DELETE("/:videoId", videosC.Delete())
		videos.PATCH("/toggle/publish/:videoId", videosC.TogglePublish())
	}

	comments := api.Group("/comments", requireAuth)
	{
		comments.GET("/:videoId", commentsC.List())
		comments.POST("/:videoId", commentsC.Add())
		comments.PATCH("/c/:commentId", commentsC.Update())
		comments.DELETE("/c/:commentId", commentsC.Delete())
	}

	playlists := api.Group("/playlists", requireAuth)
	{
		playlists.POST("", playlistsC.Create())
		playlists.GET("/user/:userId", playlistsC.UserPlaylists())
		playlists.GET("/:playlistId", playlistsC.Get())
		playlists.PATCH("/:playlistId", playlistsC.Update())
		playlists.DELETE("/:playlistId", playlistsC.Delete())
		playlists.PATCH("/add/:videoId/:playlistId", playlistsC.AddVideo())
		playlists.PATCH("/remove/:videoId/:playlistId", playlistsC.RemoveVideo())
	}

	likes := api.Group("/likes", requireAuth)
	{
		likes.POST("/toggle/v/:id", likesC.Toggle(models.LikeVideo))
		likes.POST("/toggle/c/:id", likesC.Toggle(models.LikeComment))
		likes.POST("/toggle/t/:id", likesC.Toggle(models.LikeTweet))
		likes.GET("/videos", likesC.LikedVideos())
	}

	api.POST("/subscriptions/c/:channelId", requireAuth, subsC.Toggle())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newStorage builds the media backend named by cfg.Backend. The returned
// func releases its client.
func newStorage(ctx context.Context, cfg config.MediaConfig) (media.Storage, func(), error) {
	switch cfg.Backend {
	case "cloudinary":
		s, err := media.NewCloudinaryStorage(cfg.CloudinaryURL)
		return s, func() {}, err
	case "gcs":
		s, err := media.NewGCSStorage(ctx, cfg.GCSBucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "r2":
		s, err := media.NewR2Storage(ctx, media.R2Config{
			Bucket:       cfg.R2Bucket,
			AccessKey:    cfg.R2AccessKey,
			SecretKey:    cfg.R2SecretKey,
			Endpoint:     cfg.R2Endpoint,
			PublicDomain: cfg.R2PublicDomain,
		})
		return s, func() {}, err
	default:
		return nil, nil, fmt.Errorf("unknown MEDIA_BACKEND %q (want cloudinary, gcs or r2)", cfg.Backend)
	}
}
