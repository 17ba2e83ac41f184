package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter, limit, offset int) ([]Movement, int, error)
	Discrepancies(ctx context.Context) ([]Discrepancy, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	listeners []StockListener
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger, listeners ...StockListener) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, listeners: listeners, logger: logger, now: time.Now}
}

// Restock raises stock and appends an add movement in one unit of work.
func (s *Service) Restock(ctx context.Context, input RestockInput) (StockChangedEvent, error) {
	if input.ProductID <= 0 {
		return StockChangedEvent{}, shared.Invalid("product_id", "is required")
	}
	if input.Quantity <= 0 {
		return StockChangedEvent{}, ErrInvalidQuantity
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = ReasonRestock
	}
	var evt StockChangedEvent
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lvl, err := tx.LockStock(ctx, input.ProductID)
		if err != nil {
			return err
		}
		mv, err := NewMovement(input.ProductID, input.Quantity, reason, input.ActorID)
		if err != nil {
			return err
		}
		if _, err := tx.InsertMovement(ctx, mv); err != nil {
			return fmt.Errorf("inventory: insert movement: %w", err)
		}
		qty, err := tx.AdjustStock(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return fmt.Errorf("inventory: adjust stock: %w", err)
		}
		evt = StockChangedEvent{
			ProductID:     lvl.ProductID,
			Name:          lvl.Name,
			StockQuantity: qty,
			MinStockLevel: lvl.MinStockLevel,
			Reason:        reason,
			At:            s.now().UTC(),
		}
		return nil
	})
	if err != nil {
		return StockChangedEvent{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			UserID:  input.ActorID,
			Action:  "inventory.restock",
			Details: map[string]any{"product_id": input.ProductID, "quantity": input.Quantity, "reason": reason},
		}); err != nil {
			s.logger.Warn("audit restock", slog.Any("error", err))
		}
	}
	s.Notify(ctx, evt)
	return evt, nil
}

// Notify fans a committed stock change out to listeners.
func (s *Service) Notify(ctx context.Context, events ...StockChangedEvent) {
	for _, evt := range events {
		for _, l := range s.listeners {
			if err := l.HandleStockChanged(ctx, evt); err != nil {
				s.logger.Warn("stock listener", slog.Int64("product_id", evt.ProductID), slog.Any("error", err))
			}
		}
	}
}

// Movements lists ledger rows, newest first.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) (shared.Page[Movement], error) {
	page, perPage := shared.NormalizePage(filter.Page, filter.PerPage, shared.DefaultPerPage)
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListMovements(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return shared.Page[Movement]{}, err
	}
	if items == nil {
		items = []Movement{}
	}
	return shared.Page[Movement]{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Reconcile returns products whose stock disagrees with the ledger sum.
func (s *Service) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	return s.repo.Discrepancies(ctx)
}
