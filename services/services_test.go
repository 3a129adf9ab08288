package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/blogem/promptforge/database"
	"github.com/blogem/promptforge/jobs"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/userctx"
)

const testSigningKey = "test-signing-key"

// hookRecorder is a webhook endpoint that records every request it receives
type hookRecorder struct {
	mu       sync.Mutex
	requests []recordedHook
	status   atomic.Int32
}

type recordedHook struct {
	Body   []byte
	Header http.Header
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	h.mu.Lock()
	h.requests = append(h.requests, recordedHook{Body: body, Header: r.Header.Clone()})
	h.mu.Unlock()

	status := int(h.status.Load())
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (h *hookRecorder) Requests() []recordedHook {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]recordedHook, len(h.requests))
	copy(out, h.requests)
	return out
}

// serviceSuite wires real repositories on a temporary database, an inline job runner
// and a recording webhook endpoint
type serviceSuite struct {
	suite.Suite
	repos    *repositories.Repositories
	services *Services
	hooks    *hookRecorder
	server   *httptest.Server
	ctx      context.Context
	now      time.Time
	restore  func() time.Time
}

func (s *serviceSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "services.db")
	s.Require().NoError(database.InitializeDatabase(dbPath, nil))

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.restore = timeNow
	timeNow = func() time.Time { return s.now }

	s.hooks = &hookRecorder{}
	s.server = httptest.NewServer(s.hooks)

	s.repos = repositories.NewRepositories(database.GetDB())
	s.services = s.newServices(s.repos)
	s.ctx = userctx.SetUser(context.Background(), userctx.User{ID: "owner-1", Email: "owner@example.com"})
}

func (s *serviceSuite) TearDownTest() {
	timeNow = s.restore
	s.server.Close()
	database.CloseDB()
}

func (s *serviceSuite) newServices(repos *repositories.Repositories) *Services {
	return s.newServicesWithSender(repos, NewHTTPSender(2*time.Second))
}

func (s *serviceSuite) newServicesWithSender(repos *repositories.Repositories, sender Sender) *Services {
	return NewServices(repos, Options{
		Runner: jobs.Inline{},
		Logger: zaptest.NewLogger(s.T()),
		Sender: sender,
		Exports: ExportSettings{
			SigningKey: testSigningKey,
			BaseURL:    "http://localhost:8080",
		},
		Webhooks: WebhookSettings{MaxAttempts: 3},
	})
}

// advance moves the fixed clock forward
func (s *serviceSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *serviceSuite) otherOwner() context.Context {
	return userctx.SetUser(context.Background(), userctx.User{ID: "owner-2", Email: "other@example.com"})
}

func (s *serviceSuite) createPrompts(ctx context.Context, n int) []*models.Prompt {
	prompts := make([]*models.Prompt, 0, n)
	for i := 0; i < n; i++ {
		prompt, err := s.services.Prompts.CreatePrompt(ctx, &models.PromptForm{
			Title:   "Prompt",
			Content: "Explain {{topic}} simply",
			Tags:    []string{"teaching"},
		})
		s.Require().NoError(err)
		prompts = append(prompts, prompt)
		s.advance(time.Second)
	}
	return prompts
}

func (s *serviceSuite) registerWebhook(ctx context.Context, events ...string) *models.Webhook {
	webhook, err := s.services.Webhooks.RegisterWebhook(ctx, &models.WebhookForm{
		URL:        s.server.URL + "/hook",
		EventTypes: events,
	})
	s.Require().NoError(err)
	return webhook
}
