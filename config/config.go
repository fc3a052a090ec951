package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type MediaConfig struct {
	Backend string

	CloudinaryURL string

	GCSBucket       string
	CredentialsFile string

	R2Bucket       string
	R2AccessKey    string
	R2SecretKey    string
	R2Endpoint     string
	R2PublicDomain string

	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	MaxImageSizeMB int
	MaxVideoSizeMB int
}

type Config struct {
	Port           string
	MongoURI       string
	DatabaseName   string
	LogLevel       string
	AllowedOrigins []string

	AccessSecret           string
	RefreshSecret          string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	RevokeOnPasswordChange bool

	CookieSecure bool
	CookieDomain string

	DefaultQueryLimit int
	MaxQueryLimit     int
	RequestTimeout    time.Duration

	AuthRateLimitPerMinute int

	Media MediaConfig
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	cfg := Config{
		Port:           getString("PORT", "8080"),
		MongoURI:       getString("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName:   getString("DATABASE_NAME", "videotube"),
		LogLevel:       getString("LOG_LEVEL", "info"),
		AllowedOrigins: getList("ALLOWED_ORIGINS"),

		AccessSecret:           os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:          os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:              time.Duration(getInt("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL:             time.Duration(getInt("REFRESH_TOKEN_TTL_DAYS", 10)) * 24 * time.Hour,
		RevokeOnPasswordChange: getBool("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", false),

		CookieSecure: getBool("COOKIE_SECURE", true),
		CookieDomain: os.Getenv("COOKIE_DOMAIN"),

		DefaultQueryLimit: getInt("DEFAULT_READ_QUERY_LIMIT", 10),
		MaxQueryLimit:     getInt("READ_QUERY_MAX_LIMIT", 100),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 30*time.Second),

		AuthRateLimitPerMinute: getInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),

		Media: MediaConfig{
			Backend:         strings.ToLower(getString("MEDIA_BACKEND", "cloudinary")),
			CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
			GCSBucket:       os.Getenv("GCS_BUCKET"),
			CredentialsFile: os.Getenv("CREDENTIALS_FILE_LOCATION"),
			R2Bucket:        os.Getenv("R2_BUCKET"),
			R2AccessKey:     os.Getenv("R2_ACCESS_KEY_ID"),
			R2SecretKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
			R2Endpoint:      os.Getenv("R2_ENDPOINT"),
			R2PublicDomain:  os.Getenv("R2_PUBLIC_DOMAIN"),
			MaxAttempts:     getInt("MEDIA_MAX_ATTEMPTS", 3),
			BaseBackoff:     getDuration("MEDIA_BASE_BACKOFF", 200*time.Millisecond),
			MaxBackoff:      getDuration("MEDIA_MAX_BACKOFF", 3*time.Second),
			MaxImageSizeMB:  getInt("MAX_IMAGE_SIZE_MB", 5),
			MaxVideoSizeMB:  getInt("MAX_VIDEO_SIZE_MB", 500),
		},
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, errors.New("missing ACCESS_TOKEN_SECRET or REFRESH_TOKEN_SECRET env vars")
	}
	if cfg.DefaultQueryLimit <= 0 {
		cfg.DefaultQueryLimit = 10
	}
	if cfg.MaxQueryLimit < cfg.DefaultQueryLimit {
		cfg.MaxQueryLimit = cfg.DefaultQueryLimit
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
