// Package storage persists the pieces of conversation state that outlive
// a single request: per-user chat history, per-tenant instructional
// prompts and the domain-to-tenant mapping used to scope retrieval.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aarav0180/aven-backend/internal/config"
	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Storage interface defines conversation-state operations.
type Storage interface {
	GetHistory(ctx context.Context, userID string) ([]models.ConversationTurn, error)
	SaveHistory(ctx context.Context, userID string, history []models.ConversationTurn) error

	GetInstructionalPrompt(ctx context.Context, subject string) (string, error)
	SetInstructionalPrompt(ctx context.Context, subject, prompt string) error

	GetTenantForDomain(ctx context.Context, domain string) (string, error)
	SetTenantForDomain(ctx context.Context, domain, tenant string) error
}

// Manager wraps a storage backend and exposes it to the handlers. It
// also adapts the store to the retrieval package's PromptSource.
type Manager struct {
	storage Storage
	logger  *logrus.Logger
}

// NewManager creates a storage manager for the configured backend.
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	case "memory":
		storage = NewMemoryStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return &Manager{storage: storage, logger: logger}, nil
}

func (m *Manager) GetHistory(ctx context.Context, userID string) ([]models.ConversationTurn, error) {
	return m.storage.GetHistory(ctx, userID)
}

func (m *Manager) SaveHistory(ctx context.Context, userID string, history []models.ConversationTurn) error {
	return m.storage.SaveHistory(ctx, userID, history)
}

func (m *Manager) GetInstructionalPrompt(ctx context.Context, subject string) (string, error) {
	return m.storage.GetInstructionalPrompt(ctx, subject)
}

func (m *Manager) SetInstructionalPrompt(ctx context.Context, subject, prompt string) error {
	return m.storage.SetInstructionalPrompt(ctx, subject, prompt)
}

func (m *Manager) GetTenantForDomain(ctx context.Context, domain string) (string, error) {
	return m.storage.GetTenantForDomain(ctx, domain)
}

func (m *Manager) SetTenantForDomain(ctx context.Context, domain, tenant string) error {
	return m.storage.SetTenantForDomain(ctx, domain, tenant)
}

// InstructionalPrompt implements retrieval.PromptSource. A store failure
// degrades to "no prompt".
func (m *Manager) InstructionalPrompt(ctx context.Context, subject string) string {
	prompt, err := m.storage.GetInstructionalPrompt(ctx, subject)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to fetch instructional prompt")
		return ""
	}
	return prompt
}

// RedisStorage implements Storage on Redis.
type RedisStorage struct {
	client     *redis.Client
	historyTTL time.Duration
	logger     *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client:     client,
		historyTTL: cfg.Storage.Memory.DefaultExpiration,
		logger:     logger,
	}, nil
}

func (r *RedisStorage) GetHistory(ctx context.Context, userID string) ([]models.ConversationTurn, error) {
	data, err := r.client.Get(ctx, "history:"+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var history []models.ConversationTurn
	if err := json.Unmarshal([]byte(data), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (r *RedisStorage) SaveHistory(ctx context.Context, userID string, history []models.ConversationTurn) error {
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, "history:"+userID, data, r.historyTTL).Err()
}

func (r *RedisStorage) GetInstructionalPrompt(ctx context.Context, subject string) (string, error) {
	prompt, err := r.client.Get(ctx, "prompt:"+subject).Result()
	if err == redis.Nil {
		return "", nil
	}
	return prompt, err
}

func (r *RedisStorage) SetInstructionalPrompt(ctx context.Context, subject, prompt string) error {
	return r.client.Set(ctx, "prompt:"+subject, prompt, 0).Err()
}

func (r *RedisStorage) GetTenantForDomain(ctx context.Context, domain string) (string, error) {
	tenant, err := r.client.Get(ctx, "tenant:"+domain).Result()
	if err == redis.Nil {
		return "", nil
	}
	return tenant, err
}

func (r *RedisStorage) SetTenantForDomain(ctx context.Context, domain, tenant string) error {
	return r.client.Set(ctx, "tenant:"+domain, tenant, 0).Err()
}

// MemoryStorage implements Storage using in-memory caches.
type MemoryStorage struct {
	histories *gocache.Cache
	prompts   *gocache.Cache
	tenants   *gocache.Cache
}

func NewMemoryStorage(cfg *config.Config) *MemoryStorage {
	return &MemoryStorage{
		histories: gocache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		prompts:   gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		tenants:   gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

func (m *MemoryStorage) GetHistory(ctx context.Context, userID string) ([]models.ConversationTurn, error) {
	if val, found := m.histories.Get(userID); found {
		return val.([]models.ConversationTurn), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveHistory(ctx context.Context, userID string, history []models.ConversationTurn) error {
	m.histories.SetDefault(userID, history)
	return nil
}

func (m *MemoryStorage) GetInstructionalPrompt(ctx context.Context, subject string) (string, error) {
	if val, found := m.prompts.Get(subject); found {
		return val.(string), nil
	}
	return "", nil
}

func (m *MemoryStorage) SetInstructionalPrompt(ctx context.Context, subject, prompt string) error {
	m.prompts.Set(subject, prompt, gocache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetTenantForDomain(ctx context.Context, domain string) (string, error) {
	if val, found := m.tenants.Get(domain); found {
		return val.(string), nil
	}
	return "", nil
}

func (m *MemoryStorage) SetTenantForDomain(ctx context.Context, domain, tenant string) error {
	m.tenants.Set(domain, tenant, gocache.NoExpiration)
	return nil
}
