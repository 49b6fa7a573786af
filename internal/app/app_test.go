package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"microblog_backend/internal/auth"
	"microblog_backend/internal/config"
	"microblog_backend/internal/logger"
	"microblog_backend/internal/pkg/email"
	"microblog_backend/internal/search"
	"microblog_backend/internal/workers"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	os.Exit(m.Run())
}

const testSecret = "integration-test-secret"

// newTestApp assembles the full router against an in-memory database and
// a disabled search backend.
func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	index, err := search.NewElastic("")
	require.NoError(t, err)
	return newTestAppWithIndexer(t, index)
}

func newTestAppWithIndexer(t *testing.T, index search.Indexer) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Auth.Secret = testSecret
	cfg.Auth.TokenTTL = 3600
	cfg.Auth.ResetTokenTTL = 600
	cfg.App.PostsPerPage = 10

	syncer := search.NewSyncer(index)

	mailer, err := email.NewGomailSender(email.Config{})
	require.NoError(t, err)
	mailWorker := workers.NewMailWorker(mailer, 4)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mailWorker.Start(ctx)

	return SetupRouter(cfg, db, syncer, mailWorker)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func registerUser(t *testing.T, router *gin.Engine, username string) uint {
	t.Helper()
	rec, body := doJSON(t, router, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": "super-secret-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(body["id"].(float64))
}

func issueToken(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.SetBasicAuth(username, "super-secret-password")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func TestRegistrationAndTokenIssuance(t *testing.T) {
	router := newTestApp(t)

	rec, body := doJSON(t, router, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "susan",
		"email":    "susan@example.com",
		"password": "super-secret-password",
		"about_me": "hello there",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "susan", body["username"])
	assert.Equal(t, "susan@example.com", body["email"])
	assert.NotEmpty(t, rec.Header().Get("Location"))

	// Duplicate username is a validation error, not a server error.
	rec, body = doJSON(t, router, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "susan",
		"email":    "different@example.com",
		"password": "super-secret-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "different username")

	// Short passwords never reach the database.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/users", "", map[string]interface{}{
		"username": "john",
		"email":    "john@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := issueToken(t, router, "susan")

	// Issuing again inside the validity window reuses the same token.
	assert.Equal(t, token, issueToken(t, router, "susan"))

	// Wrong password gets a 401 that does not say which part was wrong.
	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.SetBasicAuth("susan", "wrong-password")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "invalid username or password")
}

func TestUserRepresentationAndPrivacy(t *testing.T) {
	router := newTestApp(t)

	susanID := registerUser(t, router, "susan")
	registerUser(t, router, "john")

	susanToken := issueToken(t, router, "susan")
	johnToken := issueToken(t, router, "john")

	// Requesting yourself includes the email address.
	rec, body := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d", susanID), susanToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "susan@example.com", body["email"])

	// Requesting someone else hides it.
	rec, body = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d", susanID), johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, hasEmail := body["email"]
	assert.False(t, hasEmail)

	// Unauthenticated access is refused.
	rec, _ = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d", susanID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Users may only edit themselves.
	rec, _ = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/users/%d", susanID), johnToken, map[string]interface{}{
		"about_me": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/users/%d", susanID), susanToken, map[string]interface{}{
		"about_me": "updated bio",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "updated bio", body["about_me"])
}

func TestPostLifecycle(t *testing.T) {
	router := newTestApp(t)

	registerUser(t, router, "susan")
	registerUser(t, router, "john")
	susanToken := issueToken(t, router, "susan")
	johnToken := issueToken(t, router, "john")

	rec, body := doJSON(t, router, http.MethodPost, "/api/posts", susanToken, map[string]interface{}{
		"body": "my first post",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "my first post", body["body"])
	assert.Equal(t, "susan", body["author"])
	postID := uint(body["id"].(float64))

	rec, body = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "my first post", body["body"])

	// Only the author may delete.
	rec, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), johnToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), susanToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), susanToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Body over 140 characters fails validation.
	long := make([]byte, 141)
	for i := range long {
		long[i] = 'a'
	}
	rec, _ = doJSON(t, router, http.MethodPost, "/api/posts", susanToken, map[string]interface{}{
		"body": string(long),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowAndTimeline(t *testing.T) {
	router := newTestApp(t)

	susanID := registerUser(t, router, "susan")
	registerUser(t, router, "john")
	susanToken := issueToken(t, router, "susan")
	johnToken := issueToken(t, router, "john")

	_, _ = doJSON(t, router, http.MethodPost, "/api/posts", susanToken, map[string]interface{}{
		"body": "susan's post",
	})
	_, _ = doJSON(t, router, http.MethodPost, "/api/posts", johnToken, map[string]interface{}{
		"body": "john's post",
	})

	// Before following, john's timeline only has his own post.
	rec, body := doJSON(t, router, http.MethodGet, "/api/timeline", johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)

	rec, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", susanID), johnToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Following yourself is rejected.
	rec, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", susanID), susanToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Re-following is idempotent.
	rec, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", susanID), johnToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = doJSON(t, router, http.MethodGet, "/api/timeline", johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = body["items"].([]interface{})
	assert.Len(t, items, 2)

	rec, body = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d/followers", susanID), johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	meta := body["_meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["total_items"])

	rec, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/users/%d/follow", susanID), johnToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = doJSON(t, router, http.MethodGet, "/api/timeline", johnToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = body["items"].([]interface{})
	assert.Len(t, items, 1)
}

func TestSearchWithoutBackend(t *testing.T) {
	router := newTestApp(t)

	registerUser(t, router, "susan")
	token := issueToken(t, router, "susan")

	// Missing q is a client error.
	rec, _ := doJSON(t, router, http.MethodGet, "/api/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// With no backend configured the search degrades to an empty result.
	rec, body := doJSON(t, router, http.MethodGet, "/api/search?q=anything", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]interface{})
	assert.Empty(t, items)
}

// rankedIndexer remembers indexed documents and answers queries with the
// remembered ids newest first, imitating a relevance ranking.
type rankedIndexer struct {
	ids []uint
}

func (r *rankedIndexer) Index(_ context.Context, _ string, id uint, _ map[string]interface{}) error {
	r.ids = append(r.ids, id)
	return nil
}

func (r *rankedIndexer) Delete(_ context.Context, _ string, id uint) error {
	for i, known := range r.ids {
		if known == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *rankedIndexer) Query(context.Context, string, string, int, int) ([]uint, int64, error) {
	ranked := make([]uint, 0, len(r.ids))
	for i := len(r.ids) - 1; i >= 0; i-- {
		ranked = append(ranked, r.ids[i])
	}
	return ranked, int64(len(ranked)), nil
}

func TestSearchWithBackendPreservesRanking(t *testing.T) {
	index := &rankedIndexer{}
	router := newTestAppWithIndexer(t, index)

	registerUser(t, router, "susan")
	token := issueToken(t, router, "susan")

	var postIDs []uint
	for _, text := range []string{"first post", "second post", "third post"} {
		rec, body := doJSON(t, router, http.MethodPost, "/api/posts", token, map[string]interface{}{
			"body": text,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		postIDs = append(postIDs, uint(body["id"].(float64)))
	}
	require.Len(t, index.ids, 3)

	rec, body := doJSON(t, router, http.MethodGet, "/api/search?q=post", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	items := body["items"].([]interface{})
	require.Len(t, items, 3)

	// The backend ranked newest first; rehydration must not reorder.
	for i, item := range items {
		got := uint(item.(map[string]interface{})["id"].(float64))
		assert.Equal(t, postIDs[len(postIDs)-1-i], got)
	}

	// Deleting a post removes its document before the next query.
	rec, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postIDs[2]), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = doJSON(t, router, http.MethodGet, "/api/search?q=post", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = body["items"].([]interface{})
	assert.Len(t, items, 2)
}

func TestLoginAndLogout(t *testing.T) {
	router := newTestApp(t)

	registerUser(t, router, "susan")

	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"username": "susan",
		"password": "super-secret-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token stops working.
	rec, _ = doJSON(t, router, http.MethodGet, "/api/timeline", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	router := newTestApp(t)

	susanID := registerUser(t, router, "susan")

	// The response is identical for known and unknown addresses.
	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/reset-password-request", "", map[string]interface{}{
		"email": "susan@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	knownMsg := body["message"]

	rec, body = doJSON(t, router, http.MethodPost, "/api/auth/reset-password-request", "", map[string]interface{}{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, knownMsg, body["message"])

	// Complete the reset with a token minted the same way the mail link is.
	codec := auth.NewResetTokenCodec(testSecret, 10*time.Minute)
	resetToken, err := codec.Encode(susanID)
	require.NoError(t, err)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", "", map[string]interface{}{
		"token":    resetToken,
		"password": "brand-new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Old password is gone, new one works.
	req := httptest.NewRequest(http.MethodPost, "/api/tokens", nil)
	req.SetBasicAuth("susan", "super-secret-password")
	recOld := httptest.NewRecorder()
	router.ServeHTTP(recOld, req)
	assert.Equal(t, http.StatusUnauthorized, recOld.Code)

	rec, body = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"username": "susan",
		"password": "brand-new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	// Garbage tokens fail closed.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", "", map[string]interface{}{
		"token":    "garbage",
		"password": "another-new-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthMetricsAndUnknownRoutes(t *testing.T) {
	router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
