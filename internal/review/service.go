package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service mints short-lived review links for completed intake calls. The
// SMS confirmation carries the link; resolving it returns the call_id the
// sanitized record is looked up by.
//
// Link failures must never block a notification; callers fall back to the
// raw call id as the reference.

var ErrTokenNotFound = errors.New("review: token not found or expired")

// KV is the minimal key-value contract the service needs. RedisKV is the
// production implementation; MemoryKV serves tests and local runs.
type KV interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Fetch(ctx context.Context, key string) (string, error)
}

type Service struct {
	kv       KV
	baseURL  string
	ttl      time.Duration
	newToken func() string
}

func NewService(kv KV, baseURL string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		kv:       kv,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		newToken: func() string { return uuid.NewString() },
	}
}

// Link mints a token for callID and returns the absolute review URL.
func (s *Service) Link(ctx context.Context, callID string) (string, error) {
	token := s.newToken()
	if err := s.kv.Put(ctx, tokenKey(token), callID, s.ttl); err != nil {
		return "", err
	}
	return s.baseURL + "/r/" + token, nil
}

// Resolve maps a token back to its call_id.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrTokenNotFound
	}
	return s.kv.Fetch(ctx, tokenKey(token))
}

func tokenKey(token string) string { return "review:token:" + token }
