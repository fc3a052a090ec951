package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/logging"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	users map[string]models.User
}

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (models.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return models.User{}, apierror.UnauthorizedError("invalid access token", errors.New("bad token"))
}

func authRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, user.Username)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	auth := fakeAuthenticator{users: map[string]models.User{"good": {ID: bson.NewObjectID(), Username: "ada"}}}
	r := authRouter(AuthMiddleware(auth))

	cases := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "bearer", header: "Bearer good", status: http.StatusOK, body: "ada"},
		{name: "cookie", cookie: "good", status: http.StatusOK, body: "ada"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer forged", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: utils.AccessTokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusOK {
				if rec.Body.String() != tc.body {
					t.Fatalf("body = %q", rec.Body.String())
				}
				return
			}
			var env utils.ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.Success || env.StatusCode != http.StatusUnauthorized || env.Errors == nil {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	auth := fakeAuthenticator{users: map[string]models.User{"good": {ID: bson.NewObjectID(), Username: "ada"}}}
	r := authRouter(OptionalAuth(auth))

	for token, want := range map[string]string{"": "anonymous", "forged": "anonymous", "good": "ada"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("token %q: %d %q", token, rec.Code, rec.Body.String())
		}
	}
}

func TestRequestLoggerAttachesRequestID(t *testing.T) {
	var logs bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logging.RequestIDFromContext(c.Request.Context()))
	})
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := rec.Header().Get(RequestIDHeader)
	if id == "" || rec.Body.String() != id {
		t.Fatalf("request id header %q, body %q", id, rec.Body.String())
	}
	if !bytes.Contains(logs.Bytes(), []byte(id)) {
		t.Fatalf("log lines should carry the request id: %s", logs.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d", rec.Code)
	}
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.GET("/slow", Timeout(time.Minute), func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestKeyedLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(1, 2, time.Hour)
	l.clock = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third request within the minute should be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("keys are limited independently")
	}

	now = now.Add(time.Minute)
	if !l.Allow("a") {
		t.Fatal("token should refill after a minute")
	}
}

func TestKeyedLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(60, 1, time.Minute)
	l.clock = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	if l.size() != 2 {
		t.Fatalf("size = %d", l.size())
	}

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	if l.size() != 1 {
		t.Fatalf("idle buckets kept, size = %d", l.size())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewKeyedLimiter(1, 1, time.Hour)
	r := gin.New()
	r.POST("/login", RateLimit(l, "login"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
