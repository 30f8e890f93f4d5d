package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/clemson-tix/tigertix/internal/models"
)

// TokenSweeper periodically deletes refresh tokens that are expired or
// revoked along with spent password reset tokens. Expiry is enforced at read
// time regardless; the sweep only keeps the tables small.
type TokenSweeper struct {
	tokens   models.TokenRepo
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewTokenSweeper(tokens models.TokenRepo, interval time.Duration, logger *slog.Logger) *TokenSweeper {
	return &TokenSweeper{
		tokens:   tokens,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *TokenSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("token sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("token sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("token sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *TokenSweeper) Sweep(ctx context.Context) (models.SweepResult, error) {
	result, err := s.tokens.SweepTokens(ctx, s.now())
	if err != nil {
		return result, err
	}
	if result.RefreshTokens > 0 || result.PasswordResetTokens > 0 {
		s.logger.Info("token sweep",
			"refresh_tokens", result.RefreshTokens,
			"password_reset_tokens", result.PasswordResetTokens,
		)
	}
	return result, nil
}
