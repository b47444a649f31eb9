package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aarav0180/aven-backend/internal/config"
	"github.com/aarav0180/aven-backend/internal/i18n"
	"github.com/aarav0180/aven-backend/internal/middleware"
	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/aarav0180/aven-backend/internal/services/action"
	"github.com/aarav0180/aven-backend/internal/services/cache"
	"github.com/aarav0180/aven-backend/internal/services/embedding"
	"github.com/aarav0180/aven-backend/internal/services/guardrails"
	"github.com/aarav0180/aven-backend/internal/services/mailer"
	"github.com/aarav0180/aven-backend/internal/services/prompt"
	"github.com/aarav0180/aven-backend/internal/services/retrieval"
	"github.com/aarav0180/aven-backend/internal/services/storage"
	"github.com/aarav0180/aven-backend/pkg/logger"
	"github.com/aarav0180/aven-backend/pkg/markdown"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ModelInvoker runs the provider fallback chain for a built prompt. The
// bool reports whether any provider answered.
type ModelInvoker interface {
	Invoke(ctx context.Context, messages []models.Message) (string, bool)
}

// ChatHandler processes chat requests end to end: guardrails, retrieval,
// model invocation with caching, action detection and follow-up email.
type ChatHandler struct {
	config      *config.Config
	cache       *cache.ResponseCache
	retriever   retrieval.Retriever
	embedder    embedding.Service
	invoker     ModelInvoker
	mailer      mailer.Mailer
	storage     *storage.Manager
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	cfg *config.Config,
	responseCache *cache.ResponseCache,
	retriever retrieval.Retriever,
	embedder embedding.Service,
	invoker ModelInvoker,
	notifier mailer.Mailer,
	store *storage.Manager,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *ChatHandler {
	return &ChatHandler{
		config:      cfg,
		cache:       responseCache,
		retriever:   retriever,
		embedder:    embedder,
		invoker:     invoker,
		mailer:      notifier,
		storage:     store,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleChat processes a chat request
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lang := h.config.I18n.DefaultLanguage

	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.WithField("panic", rec).Error("Chat handler panicked")
			h.metrics.RecordRequest("error", time.Since(start))
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error:   h.localizer.Get(lang, i18n.MsgInternalError, nil),
				Details: fmt.Sprintf("%v", rec),
			})
		}
	}()

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordRequest("bad_request", time.Since(start))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		h.metrics.RecordRequest("bad_request", time.Since(start))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error: "query is required",
		})
		return
	}

	clientKey := req.UserID
	if clientKey == "" {
		clientKey = remoteIP(r)
	}
	if !h.rateLimiter.Allow(clientKey) {
		h.metrics.RecordRateLimitExceeded(clientKey)
		h.metrics.RecordRequest("rate_limited", time.Since(start))
		writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error: h.localizer.Get(lang, i18n.MsgRateLimited, nil),
		})
		return
	}

	ctx := r.Context()
	log := logger.WithRequest(h.logger, uuid.NewString(), req.UserID).WithField("query", req.Query)

	history := models.SanitizeHistory(req.ChatHistory)
	if len(history) == 0 && req.UserID != "" {
		stored, err := h.storage.GetHistory(ctx, req.UserID)
		if err != nil {
			log.WithError(err).Warn("Failed to load stored history")
		} else {
			history = models.SanitizeHistory(stored)
		}
	}

	subject := h.resolveSubject(ctx, r, &req)

	// Guardrails run before anything touches the model or the cache.
	if msg := guardrails.Check(req.Query); msg != "" {
		h.metrics.RecordGuardrailBlock(blockReason(msg))
		h.metrics.RecordRequest("blocked", time.Since(start))
		log.Info("Query blocked by guardrails")
		h.respond(w, &req, msg)
		return
	}

	// Tenant mode scopes retrieval and the cache namespace; global mode
	// queries unfiltered and caches under the empty context.
	var filter map[string]string
	if subject != "" {
		filter = map[string]string{"subject": subject}
	}

	vector := h.embedder.Embed(ctx, req.Query)
	contextText, instructional := h.retriever.Retrieve(ctx, req.Query, vector, filter)

	answer, hit := h.cache.Get(req.Query, subject)
	if hit {
		h.metrics.RecordCacheHit()
		log.Info("Serving cached response")
	} else {
		h.metrics.RecordCacheMiss()

		messages := prompt.Build(req.Query, contextText, history, instructional)
		var ok bool
		answer, ok = h.invoker.Invoke(ctx, messages)
		// Only successful model output is cached; the tagged failure
		// string must not outlive the outage.
		if ok {
			h.cache.Set(req.Query, answer, subject)
		}
	}

	// Action detection always runs against the live query and history,
	// including when the answer came from the cache.
	response := h.applyActionSignal(ctx, log, answer, &req, history)

	h.saveHistory(ctx, log, &req, history, response)

	h.metrics.RecordRequest("ok", time.Since(start))
	h.respond(w, &req, response)
}

// applyActionSignal inspects the exchange for a proposed follow-up and
// either sends the notification or steers the user toward providing
// what is still missing.
func (h *ChatHandler) applyActionSignal(ctx context.Context, log *logrus.Entry, answer string, req *models.ChatRequest, history []models.ConversationTurn) string {
	signal := action.Detect(answer, req.Query, history)
	lang := h.config.I18n.DefaultLanguage

	if !signal.AssistantProposedAction {
		return answer
	}

	// Delegation replaces the model answer entirely: the user gets the
	// fixed acknowledgment (or apology), not the answer plus a suffix.
	if signal.UserAgreed && signal.UserEmail != "" {
		kind := mailer.KindSupportRequest
		if action.IsSchedulingIntent(answer) {
			kind = mailer.KindMeetingRequest
		}

		notification, err := h.mailer.Notify(ctx, kind, signal.UserEmail, transcript(history, req.Query, answer))
		if err != nil {
			log.WithError(err).Error("Failed to send notification email")
			h.metrics.RecordEmailSent(string(kind), "error")
			return h.localizer.Get(lang, i18n.MsgEmailApology, nil)
		}

		h.metrics.RecordEmailSent(string(kind), "ok")
		if kind == mailer.KindMeetingRequest {
			return h.localizer.Get(lang, i18n.MsgMeetingScheduled, map[string]interface{}{
				"Link": notification.MeetingLink,
			})
		}
		return h.localizer.Get(lang, i18n.MsgTeamInformed, nil)
	}

	if signal.UserEmail != "" {
		return answer + "\n\n" + h.localizer.Get(lang, i18n.MsgOfferHelp, map[string]interface{}{
			"Email": h.config.Email.SupportEmail,
		})
	}

	return answer + "\n\n" + h.localizer.Get(lang, i18n.MsgAskEmail, nil)
}

// resolveSubject scopes retrieval and caching to a tenant. The request
// origin wins when a tenant mapping exists for its domain; otherwise the
// username identifies the subject. An empty result means global mode:
// unfiltered retrieval and the empty cache context.
func (h *ChatHandler) resolveSubject(ctx context.Context, r *http.Request, req *models.ChatRequest) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin != "" {
		if domain := extractRootDomain(origin); domain != "" {
			tenant, err := h.storage.GetTenantForDomain(ctx, domain)
			if err != nil {
				h.logger.WithError(err).Warn("Tenant lookup failed")
			} else if tenant != "" {
				return tenant
			}
		}
	}

	if req.Username != "" {
		return req.Username
	}
	if cookie, err := r.Cookie("username"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func (h *ChatHandler) saveHistory(ctx context.Context, log *logrus.Entry, req *models.ChatRequest, history []models.ConversationTurn, response string) {
	if req.UserID == "" {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	updated := append(history,
		models.ConversationTurn{Role: string(models.RoleUser), Content: req.Query, Timestamp: now},
		models.ConversationTurn{Role: string(models.RoleAssistant), Content: response, Timestamp: now},
	)
	if len(updated) > models.MaxHistoryTurns {
		updated = updated[len(updated)-models.MaxHistoryTurns:]
	}

	if err := h.storage.SaveHistory(ctx, req.UserID, updated); err != nil {
		log.WithError(err).Warn("Failed to save history")
	}
}

func (h *ChatHandler) respond(w http.ResponseWriter, req *models.ChatRequest, response string) {
	if strings.EqualFold(req.Format, "html") {
		response = markdown.ToChatHTML(response)
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: response})
}

// transcript renders the conversation for the notification email body.
func transcript(history []models.ConversationTurn, query, answer string) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(query)
	b.WriteString("\nassistant: ")
	b.WriteString(answer)
	return b.String()
}

func blockReason(msg string) string {
	switch msg {
	case guardrails.MsgSensitiveInfo:
		return "sensitive"
	case guardrails.MsgAbusiveLanguage:
		return "abusive"
	default:
		return "restricted_advice"
	}
}

// multiLabelTLDs are suffixes where the root domain spans three labels.
var multiLabelTLDs = map[string]bool{
	"co.uk":  true,
	"com.au": true,
	"org.uk": true,
	"gov.uk": true,
	"ac.uk":  true,
}

// extractRootDomain reduces an Origin or Referer URL to its registrable
// domain, e.g. "https://chat.aven.com/widget" becomes "aven.com".
func extractRootDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" {
		host = strings.Split(rawURL, "/")[0]
	}
	host = strings.ToLower(host)

	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}

	lastTwo := strings.Join(parts[len(parts)-2:], ".")
	if multiLabelTLDs[lastTwo] && len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return lastTwo
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
