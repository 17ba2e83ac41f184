package customers

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer)}
}

func (r *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	for _, existing := range r.customers {
		if existing.Email == c.Email {
			return Customer{}, ErrEmailTaken
		}
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		if filter.Search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *memoryRepo) AdjustLoyalty(ctx context.Context, id int64, delta int) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrCustomerNotFound
	}
	if c.LoyaltyPoints+delta < 0 {
		return Customer{}, ErrNegativeLoyalty
	}
	c.LoyaltyPoints += delta
	r.customers[id] = c
	return c, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func TestCreateNormalisesPhoneAndRejectsDuplicates(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(newMemoryRepo(), audit, "KE", nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "Wanjiru", Email: "Wanjiru@Example.com", Phone: "0712 345 678"})
	require.NoError(t, err)
	assert.Equal(t, "254712345678", c.Phone)
	assert.Equal(t, "wanjiru@example.com", c.Email)

	_, err = svc.Create(ctx, CreateInput{Name: "Other", Email: "wanjiru@example.com", Phone: "0712345679"})
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, []string{"customer.create"}, audit.actions)
}

func TestCreateCollectsFieldErrors(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, "", nil)
	_, err := svc.Create(context.Background(), CreateInput{Name: "", Email: "nope", Phone: "1"})
	require.ErrorIs(t, err, shared.ErrValidation)
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
}

func TestCreateCountsNameInCharacters(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, "KE", nil)
	ctx := context.Background()

	name := strings.Repeat("é", 100)
	c, err := svc.Create(ctx, CreateInput{Name: name, Email: "amelie@example.com", Phone: "0712345670"})
	require.NoError(t, err)
	assert.Equal(t, name, c.Name)

	_, err = svc.Create(ctx, CreateInput{Name: name + "é", Email: "other@example.com", Phone: "0712345671"})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
	assert.NotContains(t, fields, "email")
}

func TestAdjustLoyaltyKeepsBalanceNonNegative(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(newMemoryRepo(), audit, "KE", nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateInput{Name: "Otieno", Email: "otieno@example.com", Phone: "+254712345678"})
	require.NoError(t, err)

	c, err = svc.AdjustLoyalty(ctx, 1, c.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, c.LoyaltyPoints)

	_, err = svc.AdjustLoyalty(ctx, 1, c.ID, -41)
	assert.ErrorIs(t, err, shared.ErrValidation)

	c, err = svc.AdjustLoyalty(ctx, 1, c.ID, -40)
	require.NoError(t, err)
	assert.Equal(t, 0, c.LoyaltyPoints)

	_, err = svc.AdjustLoyalty(ctx, 1, c.ID, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.AdjustLoyalty(ctx, 1, 99, 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, []string{"customer.create", "customer.loyalty", "customer.loyalty"}, audit.actions)
}

func TestListSearchesAndPaginates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, "KE", nil)
	ctx := context.Background()
	for i, name := range []string{"Amina", "Baraka", "Achieng"} {
		_, err := svc.Create(ctx, CreateInput{Name: name, Email: strings.ToLower(name) + "@example.com", Phone: "071234567" + string(rune('0'+i))})
		require.NoError(t, err)
	}
	page, err := svc.List(ctx, ListFilter{Search: "a", PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Achieng", page.Items[0].Name)
}
