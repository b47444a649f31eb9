package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aarav0180/aven-backend/internal/config"
	"github.com/aarav0180/aven-backend/internal/i18n"
	"github.com/aarav0180/aven-backend/internal/middleware"
	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/aarav0180/aven-backend/internal/services/cache"
	"github.com/aarav0180/aven-backend/internal/services/guardrails"
	"github.com/aarav0180/aven-backend/internal/services/mailer"
	"github.com/aarav0180/aven-backend/internal/services/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	answer string
	fail   bool
	calls  int
}

func (s *stubInvoker) Invoke(ctx context.Context, messages []models.Message) (string, bool) {
	s.calls++
	if s.fail {
		return "[gemini failed: down]\n[openrouter failed: down]\n[no provider produced a response]", false
	}
	return s.answer, true
}

type stubRetriever struct {
	contextText   string
	instructional string
	lastFilter    map[string]string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, embedding []float32, filter map[string]string) (string, string) {
	s.lastFilter = filter
	return s.contextText, s.instructional
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, query string) []float32 {
	return make([]float32, 4)
}

type stubMailer struct {
	calls     int
	lastKind  mailer.Kind
	lastEmail string
	fail      bool
}

func (s *stubMailer) Notify(ctx context.Context, kind mailer.Kind, userEmail, transcript string) (mailer.Notification, error) {
	s.calls++
	s.lastKind = kind
	s.lastEmail = userEmail
	if s.fail {
		return mailer.Notification{}, assert.AnError
	}
	n := mailer.Notification{Kind: kind}
	if kind == mailer.KindMeetingRequest {
		n.MeetingLink = "https://meet.jit.si/testroom00"
	}
	return n, nil
}

type testHarness struct {
	handler   *ChatHandler
	invoker   *stubInvoker
	retriever *stubRetriever
	mailer    *stubMailer
	cache     *cache.ResponseCache
	storage   *storage.Manager
}

func newHarness(t *testing.T, answer string) *testHarness {
	t.Helper()

	logger := logrus.New()

	cfg := &config.Config{
		Email: config.EmailConfig{
			SenderEmail:  "bot@aven.com",
			SupportEmail: "support@aven.com",
		},
		I18n: config.I18nConfig{DefaultLanguage: "en"},
	}

	responseCache := cache.New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logger)

	store, err := storage.NewManager(&config.Config{
		Storage: config.StorageConfig{
			Type: "memory",
			Memory: config.MemoryConfig{
				DefaultExpiration: time.Hour,
				CleanupInterval:   time.Hour,
			},
		},
	}, logger)
	require.NoError(t, err)

	invoker := &stubInvoker{answer: answer}
	retriever := &stubRetriever{contextText: "Aven offers a HELOC credit card."}
	notifier := &stubMailer{}

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	handler := NewChatHandler(
		cfg,
		responseCache,
		retriever,
		stubEmbedder{},
		invoker,
		notifier,
		store,
		middleware.NewRateLimiter(cfg, logger),
		localizer,
		middleware.NewMetrics(),
		logger,
	)

	return &testHarness{
		handler:   handler,
		invoker:   invoker,
		retriever: retriever,
		mailer:    notifier,
		cache:     responseCache,
		storage:   store,
	}
}

func postChat(t *testing.T, h *ChatHandler, req models.ChatRequest) (*httptest.ResponseRecorder, models.ChatResponse) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleChat(w, r)

	var resp models.ChatResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHandleChatHappyPath(t *testing.T) {
	h := newHarness(t, "The APR depends on your credit profile.")

	w, resp := postChat(t, h.handler, models.ChatRequest{Query: "What is the APR?"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "The APR depends on your credit profile.", resp.Response)
	assert.Equal(t, 1, h.invoker.calls)
	assert.Equal(t, 0, h.mailer.calls)
}

func TestHandleChatGuardrailBlocksBeforeModel(t *testing.T) {
	h := newHarness(t, "should never be returned")

	w, resp := postChat(t, h.handler, models.ChatRequest{Query: "My SSN is 123-45-6789"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, guardrails.MsgSensitiveInfo, resp.Response)
	assert.Equal(t, 0, h.invoker.calls, "blocked queries must not reach the model")
}

func TestHandleChatCacheHitSkipsModel(t *testing.T) {
	h := newHarness(t, "Cached answer about fees.")

	_, first := postChat(t, h.handler, models.ChatRequest{Query: "Are there any fees?"})
	_, second := postChat(t, h.handler, models.ChatRequest{Query: "  are there any fees?  "})

	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, h.invoker.calls, "second request must be served from cache")
}

func TestHandleChatEmptyQueryRejected(t *testing.T) {
	h := newHarness(t, "unused")

	w, _ := postChat(t, h.handler, models.ChatRequest{Query: "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, h.invoker.calls)
}

func TestHandleChatSupportNotification(t *testing.T) {
	h := newHarness(t, "I can have our support team reach out to you.")

	_, resp := postChat(t, h.handler, models.ChatRequest{
		Query: "Yes please, my email is jane@example.com",
	})

	assert.Equal(t, 1, h.mailer.calls)
	assert.Equal(t, mailer.KindSupportRequest, h.mailer.lastKind)
	assert.Equal(t, "jane@example.com", h.mailer.lastEmail)
	// The acknowledgment replaces the model answer entirely.
	assert.Equal(t, "Team has been informed via email. You will be contacted soon.", resp.Response)
}

func TestHandleChatMeetingNotificationIncludesLink(t *testing.T) {
	h := newHarness(t, "I can schedule a meeting with our team.")

	_, resp := postChat(t, h.handler, models.ChatRequest{
		Query: "Yes, schedule it. jane@example.com",
	})

	assert.Equal(t, 1, h.mailer.calls)
	assert.Equal(t, mailer.KindMeetingRequest, h.mailer.lastKind)
	assert.Equal(t, "Meeting scheduled! Link: https://meet.jit.si/testroom00 (info sent to you and support team)", resp.Response)
	assert.NotContains(t, resp.Response, "I can schedule a meeting")
}

func TestHandleChatNotificationFailureApologizes(t *testing.T) {
	h := newHarness(t, "I can have our support team reach out to you.")
	h.mailer.fail = true

	_, resp := postChat(t, h.handler, models.ChatRequest{
		Query: "Yes please, my email is jane@example.com",
	})

	assert.Equal(t, "I'm having trouble sending emails right now. Please contact support directly or use the in-app chat feature.", resp.Response)
}

func TestHandleChatAsksForEmailWhenMissing(t *testing.T) {
	h := newHarness(t, "I can have our support team reach out to you.")

	_, resp := postChat(t, h.handler, models.ChatRequest{Query: "That sounds helpful, go ahead"})

	assert.Equal(t, 0, h.mailer.calls)
	assert.Contains(t, resp.Response, "please provide your email address")
}

func TestHandleChatOffersHelpWithoutAgreement(t *testing.T) {
	h := newHarness(t, "You can reach out to our support team anytime.")

	_, resp := postChat(t, h.handler, models.ChatRequest{
		Query: "My address is jane@example.com, what are your hours?",
	})

	assert.Equal(t, 0, h.mailer.calls)
	assert.Contains(t, resp.Response, "I can notify our team at support@aven.com")
}

func TestHandleChatSubjectFromTenantMapping(t *testing.T) {
	h := newHarness(t, "answer")
	require.NoError(t, h.storage.SetTenantForDomain(context.Background(), "aven.com", "aven-prod"))

	body, err := json.Marshal(models.ChatRequest{Query: "hours of operation"})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	r.Header.Set("Origin", "https://chat.aven.com")
	w := httptest.NewRecorder()
	h.handler.HandleChat(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"subject": "aven-prod"}, h.retriever.lastFilter)
}

func TestHandleChatGlobalModeUnfiltered(t *testing.T) {
	h := newHarness(t, "answer")

	// No Origin, username or cookie: retrieval must carry no subject
	// filter at all.
	_, _ = postChat(t, h.handler, models.ChatRequest{Query: "hours of operation"})

	assert.Nil(t, h.retriever.lastFilter)
}

func TestHandleChatDoesNotCacheProviderOutage(t *testing.T) {
	h := newHarness(t, "real answer")
	h.invoker.fail = true

	_, first := postChat(t, h.handler, models.ChatRequest{Query: "What is the APR?"})
	assert.Contains(t, first.Response, "[no provider produced a response]")

	// Once providers recover the same query must reach the model again
	// rather than replaying the failure string from the cache.
	h.invoker.fail = false
	_, second := postChat(t, h.handler, models.ChatRequest{Query: "What is the APR?"})

	assert.Equal(t, "real answer", second.Response)
	assert.Equal(t, 2, h.invoker.calls)
}

func TestHandleChatPersistsHistory(t *testing.T) {
	h := newHarness(t, "Aven is a fintech company.")

	_, _ = postChat(t, h.handler, models.ChatRequest{Query: "What is Aven?", UserID: "u-1"})

	history, err := h.storage.GetHistory(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "What is Aven?", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestHandleChatHTMLFormat(t *testing.T) {
	h := newHarness(t, "**Aven** is a fintech company.")

	_, resp := postChat(t, h.handler, models.ChatRequest{Query: "What is Aven?", Format: "html"})

	assert.Contains(t, resp.Response, "<b>Aven</b>")
}

func TestExtractRootDomain(t *testing.T) {
	cases := map[string]string{
		"https://chat.aven.com/widget": "aven.com",
		"https://aven.com":             "aven.com",
		"https://app.bank.co.uk":       "bank.co.uk",
		"http://localhost:3000":        "localhost",
	}
	for input, want := range cases {
		assert.Equal(t, want, extractRootDomain(input), input)
	}
}
