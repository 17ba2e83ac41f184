package customers

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages customers.
type Service struct {
	repo   Repository
	audit  AuditPort
	region string
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the customer service. region is the default phone region.
func NewService(repo Repository, audit AuditPort, region string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if region == "" {
		region = shared.DefaultPhoneRegion
	}
	return &Service{repo: repo, audit: audit, region: region, logger: logger, now: time.Now}
}

// Create registers a customer with a normalised phone number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	name := strings.TrimSpace(input.Name)
	errs := shared.FieldErrors{}
	if name == "" {
		errs["name"] = "is required"
	} else if utf8.RuneCountInString(name) > 100 {
		errs["name"] = "must be at most 100 characters"
	}
	email, err := shared.NormalizeEmail(input.Email)
	if err != nil {
		errs["email"] = "must be a valid email"
	}
	phone, err := shared.NormalizePhone(input.Phone, s.region)
	if err != nil {
		errs["phone"] = "must be a valid phone number"
	}
	if len(errs) > 0 {
		return Customer{}, errs
	}
	c, err := s.repo.Create(ctx, Customer{Name: name, Email: email, Phone: phone})
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, input.ActorID, "customer.create", map[string]any{"customer_id": c.ID})
	return c, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List pages through customers ordered by name.
func (s *Service) List(ctx context.Context, filter ListFilter) (shared.Page[Customer], error) {
	page, perPage := shared.NormalizePage(filter.Page, filter.PerPage, shared.DefaultPerPage)
	p := shared.NewPagination(page, perPage, 0)
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.List(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return shared.Page[Customer]{}, err
	}
	if items == nil {
		items = []Customer{}
	}
	return shared.Page[Customer]{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// AdjustLoyalty adds points (negative to redeem). The balance never drops below zero.
func (s *Service) AdjustLoyalty(ctx context.Context, actorID, customerID int64, points int) (Customer, error) {
	if points == 0 {
		return Customer{}, shared.Invalid("points", "must not be zero")
	}
	c, err := s.repo.AdjustLoyalty(ctx, customerID, points)
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, actorID, "customer.loyalty", map[string]any{
		"customer_id": customerID,
		"points":      points,
		"balance":     c.LoyaltyPoints,
	})
	return c, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{UserID: actorID, Action: action, Details: details, At: s.now()}); err != nil {
		s.logger.Warn("audit customer", slog.String("action", action), slog.Any("error", err))
	}
}
