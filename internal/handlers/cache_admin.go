package handlers

import (
	"fmt"
	"net/http"

	"github.com/aarav0180/aven-backend/internal/services/cache"
	"github.com/sirupsen/logrus"
)

// CacheAdminHandler exposes cache inspection and maintenance endpoints.
type CacheAdminHandler struct {
	cache  *cache.ResponseCache
	logger *logrus.Logger
}

// NewCacheAdminHandler creates a new cache admin handler
func NewCacheAdminHandler(responseCache *cache.ResponseCache, logger *logrus.Logger) *CacheAdminHandler {
	return &CacheAdminHandler{cache: responseCache, logger: logger}
}

// HandleStats returns cache statistics
func (h *CacheAdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// HandleClear empties the cache
func (h *CacheAdminHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.cache.ClearAll()
	h.logger.Info("Response cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
}

// HandleClearExpired removes expired entries and reports the counts
func (h *CacheAdminHandler) HandleClearExpired(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cleared := h.cache.ClearExpired()
	remaining := h.cache.Stats().TotalEntries

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   fmt.Sprintf("cleared %d expired entries, %d remaining", cleared, remaining),
		"cleared":   cleared,
		"remaining": remaining,
	})
}

// HandleHealth reports service liveness
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
