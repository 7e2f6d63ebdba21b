package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nikhil/splitledger/internal/metrics"
	"github.com/nikhil/splitledger/internal/models"
)

// Ensure Shadow implements ReadStore
var _ ReadStore = (*Shadow)(nil)

const defaultShadowTimeout = 5 * time.Second

// Shadow serves every read from the primary store while asynchronously
// re-running the same query on a secondary store and comparing result counts.
// It exists to surface store-migration drift: a mismatch is logged as a
// consistency warning, never raised. The secondary leg is fire-and-forget:
// it runs on its own context with its own deadline, so secondary slowness or
// failure can never affect the primary response.
type Shadow struct {
	primary   ReadStore
	secondary ReadStore
	logger    *slog.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewShadow wraps a primary and secondary read store.
func NewShadow(primary, secondary ReadStore, logger *slog.Logger) *Shadow {
	return &Shadow{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		timeout:   defaultShadowTimeout,
	}
}

// Wait blocks until all in-flight comparisons finish. Called on shutdown so
// pending warnings still reach the log.
func (s *Shadow) Wait() {
	s.wg.Wait()
}

func (s *Shadow) GetFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	out, err := s.primary.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.compare("getFriends", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetFriends(ctx, userID)
		return len(res), err
	})
	return out, nil
}

func (s *Shadow) GetGroups(ctx context.Context, userID string) ([]models.Group, error) {
	out, err := s.primary.GetGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.compare("getGroups", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetGroups(ctx, userID)
		return len(res), err
	})
	return out, nil
}

func (s *Shadow) GetExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	out, err := s.primary.GetExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.compare("getExpenses", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetExpenses(ctx, userID)
		return len(res), err
	})
	return out, nil
}

func (s *Shadow) GetSettlements(ctx context.Context, userID string) ([]models.Settlement, error) {
	out, err := s.primary.GetSettlements(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.compare("getSettlements", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetSettlements(ctx, userID)
		return len(res), err
	})
	return out, nil
}

func (s *Shadow) GetDashboardActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	out, err := s.primary.GetDashboardActivity(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	s.compare("getDashboardActivity", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetDashboardActivity(ctx, userID, limit)
		return len(res), err
	})
	return out, nil
}

func (s *Shadow) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	out, err := s.primary.GetActivities(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	s.compare("getActivities", len(out), func(ctx context.Context) (int, error) {
		res, err := s.secondary.GetActivities(ctx, userID, limit)
		return len(res), err
	})
	return out, nil
}

// compare runs the secondary query detached from the caller. The goroutine
// carries its own context and recover barrier: it must never share a
// cancellation scope with the primary request, add latency to it, or let a
// panic escape.
func (s *Shadow) compare(op string, primaryCount int, secondaryCount func(context.Context) (int, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("shadow comparison panicked", "operation", op, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		n, err := secondaryCount(ctx)
		if err != nil {
			metrics.ShadowErrors.WithLabelValues(op).Inc()
			s.logger.Warn("shadow read failed", "operation", op, "error", err)
			return
		}
		if n != primaryCount {
			metrics.ShadowMismatches.WithLabelValues(op).Inc()
			s.logger.Warn("shadow result count mismatch",
				"operation", op,
				"primary_count", primaryCount,
				"secondary_count", n,
			)
		}
	}()
}
