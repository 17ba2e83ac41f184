package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache stores computed reports under versioned keys.
type Cache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// Service computes reports.
type Service struct {
	repo   Repository
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the report service. cache may be nil.
func NewService(repo Repository, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// SalesReport returns bucketed sales for the range. Identical concurrent
// requests share one computation and results are cached until the next sale.
func (s *Service) SalesReport(ctx context.Context, q SalesQuery) (SalesReport, error) {
	if err := q.Validate(); err != nil {
		return SalesReport{}, err
	}
	g, err := ParseGranularity(string(q.Granularity))
	if err != nil {
		return SalesReport{}, err
	}
	q.Granularity = g
	q.Start, q.End = q.Start.UTC(), q.End.UTC()
	flightKey := fmt.Sprintf("sales:%s:%d:%d", q.Granularity, q.Start.Unix(), q.End.Unix())

	ch := s.group.DoChan(flightKey, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		return s.loadSales(context.WithoutCancel(ctx), flightKey, q)
	})
	select {
	case <-ctx.Done():
		return SalesReport{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SalesReport{}, res.Err
		}
		return res.Val.(SalesReport), nil
	}
}

func (s *Service) loadSales(ctx context.Context, flightKey string, q SalesQuery) (SalesReport, error) {
	load := func(ctx context.Context) (any, error) {
		buckets, err := s.repo.SalesBuckets(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("sales buckets: %w", err)
		}
		if buckets == nil {
			buckets = []Bucket{}
		}
		return SalesReport{Start: q.Start, End: q.End, Granularity: q.Granularity, Buckets: buckets}, nil
	}
	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return SalesReport{}, err
		}
		return v.(SalesReport), nil
	}
	key, err := s.cache.BuildKey(ctx, "reports", flightKey)
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		v, err := load(ctx)
		if err != nil {
			return SalesReport{}, err
		}
		return v.(SalesReport), nil
	}
	var report SalesReport
	if err := s.cache.FetchJSON(ctx, key, &report, load); err != nil {
		return SalesReport{}, err
	}
	return report, nil
}

// Dashboard gathers the admin overview concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.repo.SalesTotals(ctx, start, end)
		if err != nil {
			return fmt.Errorf("today sales: %w", err)
		}
		d.TodaySales, d.TodayTransactions = total, count
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.ReorderAlertCount(ctx)
		if err != nil {
			return fmt.Errorf("reorder alerts: %w", err)
		}
		d.ReorderAlerts = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.ProductCount(ctx)
		if err != nil {
			return fmt.Errorf("product count: %w", err)
		}
		d.Products = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.GeneratedAt = now
	return d, nil
}
