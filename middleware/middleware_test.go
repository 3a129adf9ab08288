package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/userctx"
)

// activityRecorder is an in-memory ActivityRepository
type activityRecorder struct {
	mu      sync.Mutex
	entries []models.ActivityEntry
}

func (a *activityRecorder) Create(ctx context.Context, entry *models.ActivityEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *activityRecorder) ListByOwner(ctx context.Context, ownerID string, page models.Page) ([]models.ActivityEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ActivityEntry, len(a.entries))
	copy(out, a.entries)
	return out, nil
}

func (a *activityRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func newSessionServer(t *testing.T, activity *activityRecorder) *httptest.Server {
	t.Helper()

	sessioner, err := session.Sessioner(session.Options{
		Provider:    "memory",
		CookieName:  "test_session",
		Gclifetime:  3600,
		Maxlifetime: 3600,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(sessioner)
	r.Get("/login-as/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess := session.GetSession(r)
		_ = sess.Set(userctx.SessionUserID, chi.URLParam(r, "id"))
		_ = sess.Set(userctx.SessionUserEmail, chi.URLParam(r, "id")+"@example.com")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Use(ActivityLogger(activity, zaptest.NewLogger(t)))
		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, userctx.GetUserID(r.Context())+" "+userctx.GetUserEmail(r.Context()))
		})
		r.Post("/exports", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write(body)
		})
		r.Post("/broken", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		r.Post("/wipe", func(w http.ResponseWriter, r *http.Request) {
			userctx.SkipActivity(r.Context())
			w.WriteHeader(http.StatusAccepted)
		})
	})
	r.Get("/page", func(w http.ResponseWriter, r *http.Request) {
		RequireAuth(http.NotFoundHandler()).ServeHTTP(w, r)
	})

	return httptest.NewServer(r)
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestRequireAuth(t *testing.T) {
	server := newSessionServer(t, &activityRecorder{})
	defer server.Close()
	client := newClient(t)

	resp, err := client.Get(server.URL + "/api/whoami")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(server.URL + "/page")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, err = client.Get(server.URL + "/login-as/u-42")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/api/whoami")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u-42 u-42@example.com", string(body))
}

func TestActivityLoggerRedactsSecrets(t *testing.T) {
	activity := &activityRecorder{}
	server := newSessionServer(t, activity)
	defer server.Close()
	client := newClient(t)

	resp, err := client.Get(server.URL + "/login-as/u-7")
	require.NoError(t, err)
	resp.Body.Close()

	payload := `{"export_type":"full","format":"json","password":"Correct-Horse-42!"}`
	resp, err = client.Post(server.URL+"/api/exports", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	echoed, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, payload, string(echoed), "the handler still sees the original body")

	resp, err = client.Post(server.URL+"/api/broken", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Post(server.URL+"/api/wipe", "application/json", strings.NewReader(`{"code":"ABCD2345"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return activity.count() == 1 }, time.Second, 10*time.Millisecond)

	entries, _ := activity.ListByOwner(context.Background(), "u-7", models.Page{})
	entry := entries[0]
	assert.Equal(t, "u-7", entry.OwnerID)
	assert.Equal(t, "POST /api/exports", entry.Action)
	assert.Equal(t, "/api/exports", entry.Path)
	assert.NotContains(t, entry.Details, "Correct-Horse")
	assert.Contains(t, entry.Details, `"password":"[redacted]"`)
}

func TestGetIPAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getIPAddress(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getIPAddress(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	assert.Equal(t, "203.0.113.9", getIPAddress(req))
}
