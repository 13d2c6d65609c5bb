package routing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/graph"
)

// SuggestionCache stores computed path suggestions
type SuggestionCache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, route []string) error
}

// Network is a built graph plus the data needed to shape suggestions
type Network struct {
	Graph       *graph.RouteGraph
	Hidden      map[string]bool
	Fingerprint string
}

// CacheKey derives the cache key of a suggestion from the dataset
// fingerprint, the waypoints and the configuration
func CacheKey(fingerprint string, waypoints []string, cfg Config) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(waypoints, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(cfg.Key()))
	return "suggestion:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Service answers suggestion requests, consulting a cache when one is
// configured
type Service struct {
	router *Router
	cache  SuggestionCache
	logger *zap.Logger
}

// NewService creates a suggestion service. cache may be nil.
func NewService(router *Router, cache SuggestionCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{router: router, cache: cache, logger: logger}
}

// PathSuggestion returns the suggestion for waypoints on network. Only
// successful results are cached.
func (s *Service) PathSuggestion(ctx context.Context, network *Network, waypoints []string, cfg Config) ([]string, error) {
	if s.cache == nil || network.Fingerprint == "" {
		return s.router.PathSuggestion(ctx, network.Graph, waypoints, cfg, network.Hidden)
	}

	key := CacheKey(network.Fingerprint, waypoints, cfg)
	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("suggestion cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		s.logger.Debug("suggestion cache hit", zap.String("key", key))
		return cached, nil
	}

	route, err := s.router.PathSuggestion(ctx, network.Graph, waypoints, cfg, network.Hidden)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, route); err != nil {
		s.logger.Warn("suggestion cache write failed", zap.String("key", key), zap.Error(err))
	}
	return route, nil
}
