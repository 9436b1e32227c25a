package product

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type mockRepo struct {
	products  map[uuid.UUID]*Product
	listCalls int
}

func (m *mockRepo) Create(ctx context.Context, p *Product) error {
	cp := *p
	m.products[p.ID] = &cp
	return nil
}
func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.NotFound("product")
	}
	cp := *p
	return &cp, nil
}
func (m *mockRepo) Update(ctx context.Context, p *Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return apperr.NotFound("product")
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}
func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return apperr.NotFound("product")
	}
	delete(m.products, id)
	return nil
}
func (m *mockRepo) List(ctx context.Context, f ListFilter) ([]Product, error) {
	m.listCalls++
	out := []Product{}
	for _, p := range m.products {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.FactoryID != nil && p.FactoryID != *f.FactoryID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}
func (m *mockRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return apperr.NotFound("product")
	}
	p.IsActive = active
	return nil
}

type staticFactories map[uuid.UUID]uuid.UUID // user id -> profile id

func (f staticFactories) ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := f[userID]
	if !ok {
		return uuid.Nil, apperr.NotFound("factory profile")
	}
	return id, nil
}

type fixture struct {
	svc       Service
	repo      *mockRepo
	store     *storage.Memory
	cache     *cache.Memory
	ownerID   uuid.UUID
	factoryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		repo:      &mockRepo{products: map[uuid.UUID]*Product{}},
		store:     storage.NewMemory(),
		cache:     cache.NewMemory(),
		ownerID:   uuid.New(),
		factoryID: uuid.New(),
	}
	logger := zaptest.NewLogger(t)
	uploader := storage.NewUploader(f.store, "https://cdn.test", 1<<20, logger)
	f.svc = NewService(f.repo, staticFactories{f.ownerID: f.factoryID}, uploader, f.cache, "SAR", logger)
	return f
}

func validRequest() ProductRequest {
	return ProductRequest{
		Name:       " Steel pipe ",
		Category:   "metals",
		MinPrice:   10,
		MaxPrice:   12.5,
		MOQ:        100,
		Attributes: json.RawMessage(`{"grade":"A36"}`),
		LeadTime:   LeadTime{MinDays: 7, MaxDays: 14},
	}
}

func TestCreateProductDefaults(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create(context.Background(), f.ownerID, validRequest())
	require.NoError(t, err)
	require.Equal(t, f.factoryID, p.FactoryID)
	require.Equal(t, "Steel pipe", p.Name)
	require.Equal(t, "SAR", p.Currency)
	require.Equal(t, "piece", p.Unit)
	require.True(t, p.IsActive)
	require.NotNil(t, p.Images.Data)
	require.JSONEq(t, `{}`, string(p.Customization.Data))
	require.JSONEq(t, `{"grade":"A36"}`, string(p.Attributes.Data))
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(r *ProductRequest){
		"min above max":   func(r *ProductRequest) { r.MinPrice, r.MaxPrice = 20, 10 },
		"negative price":  func(r *ProductRequest) { r.MinPrice = -1 },
		"zero moq":        func(r *ProductRequest) { r.MOQ = 0 },
		"bad attributes":  func(r *ProductRequest) { r.Attributes = json.RawMessage(`"{not json"`) },
		"array attribute": func(r *ProductRequest) { r.Attributes = json.RawMessage(`[1,2]`) },
		"missing name":    func(r *ProductRequest) { r.Name = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			_, err := f.svc.Create(ctx, f.ownerID, req)
			require.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestAttributesAcceptJSONString(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Attributes = json.RawMessage(`"{\"colour\":\"red\"}"`)

	p, err := f.svc.Create(context.Background(), f.ownerID, req)
	require.NoError(t, err)
	require.JSONEq(t, `{"colour":"red"}`, string(p.Attributes.Data))
}

func TestUpdateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Create(context.Background(), f.ownerID, validRequest())
	require.NoError(t, err)

	other := uuid.New()
	svc := NewService(f.repo, staticFactories{other: uuid.New()}, nil, f.cache, "SAR", zaptest.NewLogger(t))
	_, err = svc.Update(context.Background(), other, p.ID, validRequest())
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestImageUploadAndRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.ownerID, validRequest())
	require.NoError(t, err)

	p, err = f.svc.UploadImage(ctx, f.ownerID, p.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.Len(t, p.Images.Data, 1)
	url := p.Images.Data[0]
	require.Contains(t, url, "https://cdn.test/products/"+p.ID.String()+"/")

	_, err = f.svc.UploadImage(ctx, f.ownerID, p.ID, bytes.NewReader([]byte("%PDF-1.4\n")))
	require.ErrorIs(t, err, apperr.ErrInvalid, "documents are not images")

	p, err = f.svc.RemoveImage(ctx, f.ownerID, p.ID, url)
	require.NoError(t, err)
	require.Empty(t, p.Images.Data)

	_, err = f.svc.RemoveImage(ctx, f.ownerID, p.ID, url)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.ownerID, validRequest())
	require.NoError(t, err)

	list, err := f.svc.List(ctx, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = f.svc.List(ctx, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.listCalls)

	_, err = f.svc.SetActive(ctx, p.ID, false)
	require.NoError(t, err)
	list, err = f.svc.List(ctx, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, 2, f.repo.listCalls)
}

func TestListRejectsInvertedPriceWindow(t *testing.T) {
	f := newFixture(t)
	lo, hi := 50.0, 10.0
	_, err := f.svc.List(context.Background(), ListFilter{MinPrice: &lo, MaxPrice: &hi})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestInactiveProductVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.ownerID, validRequest())
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, p.ID, false)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, identity.Identity{}, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Get(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.Get(ctx, identity.Identity{UserID: f.ownerID, Role: identity.RoleFactory}, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	_, err = f.svc.Get(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}, p.ID)
	require.NoError(t, err)
}

func TestDeleteRemovesStoredImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.ownerID, validRequest())
	require.NoError(t, err)
	p, err = f.svc.UploadImage(ctx, f.ownerID, p.ID, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	key := p.Images.Data[0][len("https://cdn.test/"):]
	require.True(t, f.store.Has(key))

	require.NoError(t, f.svc.Delete(ctx, f.ownerID, p.ID))
	require.False(t, f.store.Has(key))
	_, err = f.repo.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
