package mpesa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// expirySkew is subtracted from the provider lifetime so a token is never
// used right at its expiry.
const expirySkew = 60 * time.Second

// TokenStore persists access tokens.
type TokenStore interface {
	LatestToken(ctx context.Context) (Token, bool, error)
	SaveToken(ctx context.Context, t Token) (Token, error)
	PruneTokens(ctx context.Context, before time.Time) (int64, error)
}

// TokenFetcher performs the OAuth grant.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (string, time.Duration, error)
}

// Locker serialises refreshes across instances.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// TokenSource hands out a valid access token, refreshing it at most once
// per expiry across all instances.
type TokenSource struct {
	store    TokenStore
	fetcher  TokenFetcher
	locker   Locker
	attempts int
	delay    time.Duration
	metrics  RequestObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewTokenSource constructs a TokenSource. locker may be nil for single-instance use.
func NewTokenSource(store TokenStore, fetcher TokenFetcher, locker Locker, cfg Config, metrics RequestObserver, logger *slog.Logger) *TokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &TokenSource{
		store:    store,
		fetcher:  fetcher,
		locker:   locker,
		attempts: attempts,
		delay:    delay,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// AccessToken returns the cached token while valid and refreshes it otherwise.
func (s *TokenSource) AccessToken(ctx context.Context) (Token, error) {
	if tok, ok, err := s.cached(ctx); err != nil || ok {
		return tok, err
	}
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, shared.PaymentTokenLockKey, 30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 100),
		})
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return Token{}, fmt.Errorf("%w: refresh lock busy", ErrTokenUnavailable)
			}
			return Token{}, fmt.Errorf("obtain token lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				s.logger.Warn("release token lock", slog.Any("error", err))
			}
		}()
		// Another instance may have refreshed while we waited.
		if tok, ok, err := s.cached(ctx); err != nil || ok {
			return tok, err
		}
	}
	return s.refresh(ctx)
}

func (s *TokenSource) cached(ctx context.Context) (Token, bool, error) {
	tok, ok, err := s.store.LatestToken(ctx)
	if err != nil {
		return Token{}, false, fmt.Errorf("load token: %w", err)
	}
	if ok && tok.Valid(s.now()) {
		return tok, true, nil
	}
	return Token{}, false, nil
}

func (s *TokenSource) refresh(ctx context.Context) (Token, error) {
	var (
		access   string
		lifetime time.Duration
	)
	err := retry(ctx, s.attempts, s.delay, func(ctx context.Context) error {
		var err error
		access, lifetime, err = s.fetcher.FetchToken(ctx)
		if err != nil {
			s.logger.Warn("mpesa token fetch", slog.Any("error", err))
		}
		return err
	})
	if err != nil {
		s.observe("oauth", "error")
		return Token{}, fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	s.observe("oauth", "success")
	if lifetime > 2*expirySkew {
		lifetime -= expirySkew
	} else {
		lifetime /= 2
	}
	tok, err := s.store.SaveToken(ctx, Token{AccessToken: access, ExpiresAt: s.now().Add(lifetime)})
	if err != nil {
		return Token{}, fmt.Errorf("save token: %w", err)
	}
	return tok, nil
}

// Prune deletes tokens that expired before cutoff.
func (s *TokenSource) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.PruneTokens(ctx, cutoff)
}

func (s *TokenSource) observe(op, result string) {
	if s.metrics != nil {
		s.metrics.ObserveMpesa(op, result)
	}
}
