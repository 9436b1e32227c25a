package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// CacheNamespace holds cached public catalogue pages.
const CacheNamespace = "products"

// factoriesNamespace is invalidated too: the directory shows product counts.
const factoriesNamespace = "factories"

// Factories resolves the factory profile behind a FACTORY user.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Service defines catalogue logic.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req ProductRequest) (*Product, error)
	// Update replaces every editable field of a product the caller owns.
	Update(ctx context.Context, userID, id uuid.UUID, req ProductRequest) (*Product, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// UploadImage stores an image and appends its URL to the product.
	UploadImage(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*Product, error)
	RemoveImage(ctx context.Context, userID, id uuid.UUID, url string) (*Product, error)
	// ListOwn returns the caller's products, inactive ones included.
	ListOwn(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Product, error)

	// List is the public catalogue; only active products are returned.
	List(ctx context.Context, f ListFilter) ([]Product, error)
	// Get returns a product. Inactive products are visible to their owner
	// and to admins only.
	Get(ctx context.Context, viewer identity.Identity, id uuid.UUID) (*Product, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Product, error)
}

type service struct {
	repo            Repository
	factories       Factories
	uploader        storage.Uploader
	cache           cache.Cache
	defaultCurrency string
	logger          *zap.Logger
}

func NewService(repo Repository, factories Factories, uploader storage.Uploader, c cache.Cache, defaultCurrency string, logger *zap.Logger) Service {
	return &service{
		repo:            repo,
		factories:       factories,
		uploader:        uploader,
		cache:           c,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req ProductRequest) (*Product, error) {
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Product{
		ID:        uuid.New(),
		FactoryID: factoryID,
		Images:    database.NewJSONB([]string{}),
		IsActive:  true,
	}
	if err := s.apply(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, req ProductRequest) (*Product, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(p, req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	for _, url := range p.Images.Data {
		s.removeObject(ctx, s.uploader.KeyFromURL(url))
	}
	return nil
}

func (s *service) UploadImage(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*Product, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.uploader.Upload(ctx, "products/"+p.ID.String(), storage.KindImage, file)
	if err != nil {
		return nil, err
	}
	p.Images.Data = append(p.Images.Data, obj.URL)
	if err := s.save(ctx, p); err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	return p, nil
}

func (s *service) RemoveImage(ctx context.Context, userID, id uuid.UUID, url string) (*Product, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(p.Images.Data))
	for _, u := range p.Images.Data {
		if u != url {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(p.Images.Data) {
		return nil, apperr.NotFound("image")
	}
	p.Images.Data = kept
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.removeObject(ctx, s.uploader.KeyFromURL(url))
	return p, nil
}

func (s *service) ListOwn(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Product, error) {
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{FactoryID: &factoryID, Limit: limit, Offset: offset})
}

func (s *service) List(ctx context.Context, f ListFilter) ([]Product, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	f.ActiveOnly = true
	switch f.Sort {
	case "price_asc", "price_desc":
	default:
		f.Sort = "newest"
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, apperr.Invalid("min_price must not exceed max_price")
	}

	key := "list:" + cache.KeyOf(f)
	var list []Product
	if s.cache.Get(ctx, CacheNamespace, key, &list) {
		return list, nil
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, key, list)
	return list, nil
}

func (s *service) Get(ctx context.Context, viewer identity.Identity, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsActive || viewer.IsAdmin() {
		return p, nil
	}
	if viewer.IsFactory() {
		if factoryID, err := s.factories.ProfileIDForUser(ctx, viewer.UserID); err == nil && factoryID == p.FactoryID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("product")
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Product, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// owned loads a product and checks it belongs to the caller's factory.
func (s *service) owned(ctx context.Context, userID, id uuid.UUID) (*Product, error) {
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.FactoryID != factoryID {
		return nil, apperr.Forbidden("product belongs to another factory")
	}
	return p, nil
}

// apply validates req and copies it onto p.
func (s *service) apply(p *Product, req ProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate.Struct(req); err != nil {
		return err
	}
	if req.MinPrice > req.MaxPrice {
		return apperr.Invalid("min_price must not exceed max_price")
	}
	if req.LeadTime.MaxDays > 0 && req.LeadTime.MinDays > req.LeadTime.MaxDays {
		return apperr.Invalid("lead_time min_days must not exceed max_days")
	}
	attrs, err := objectJSON(req.Attributes, "attributes")
	if err != nil {
		return err
	}
	custom, err := objectJSON(req.Customization, "customization")
	if err != nil {
		return err
	}

	p.Name = req.Name
	p.Description = strings.TrimSpace(req.Description)
	p.Category = req.Category
	p.MinPrice = req.MinPrice
	p.MaxPrice = req.MaxPrice
	p.Currency = req.Currency
	if p.Currency == "" {
		p.Currency = s.defaultCurrency
	}
	p.MOQ = req.MOQ
	p.Unit = strings.TrimSpace(req.Unit)
	if p.Unit == "" {
		p.Unit = "piece"
	}
	p.Attributes = database.NewJSONB(attrs)
	p.Customization = database.NewJSONB(custom)
	p.LeadTime = database.NewJSONB(req.LeadTime)
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return nil
}

func (s *service) save(ctx context.Context, p *Product) error {
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, CacheNamespace)
	s.cache.Invalidate(ctx, factoriesNamespace)
}

func (s *service) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.uploader.Remove(ctx, key); err != nil {
		s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

// objectJSON accepts a JSON object, or a string that holds one as form
// clients send it, and returns the object. Empty input becomes {}.
func objectJSON(raw json.RawMessage, field string) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperr.Invalid("%s must be valid JSON", field)
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return json.RawMessage("{}"), nil
		}
	}
	if !json.Valid(raw) || raw[0] != '{' {
		return nil, apperr.Invalid("%s must be a JSON object", field)
	}
	return raw, nil
}
