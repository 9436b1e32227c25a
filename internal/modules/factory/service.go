package factory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// CacheNamespace holds the public directory and detail pages.
const CacheNamespace = "factories"

// Service defines factory profile, verification and directory logic.
type Service interface {
	// GetOwnProfile returns the caller's full profile.
	GetOwnProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// UpdateProfile applies the edit directly, or parks it as pending changes
	// when the factory is already verified.
	UpdateProfile(ctx context.Context, userID uuid.UUID, d Details) (*Profile, error)
	UploadDocument(ctx context.Context, userID uuid.UUID, name string, file io.Reader) (*Profile, error)
	RemoveDocument(ctx context.Context, userID, documentID uuid.UUID) (*Profile, error)
	// SubmitForVerification moves an UNVERIFIED or REJECTED factory with at
	// least one document to PENDING.
	SubmitForVerification(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// ── admin ──
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListPendingVerifications(ctx context.Context) ([]Profile, error)
	ApproveVerification(ctx context.Context, id uuid.UUID) (*Profile, error)
	RejectVerification(ctx context.Context, id uuid.UUID, reason string) (*Profile, error)
	ListPendingChanges(ctx context.Context) ([]Profile, error)
	ApproveChanges(ctx context.Context, id uuid.UUID) (*Profile, error)
	RejectChanges(ctx context.Context, id uuid.UUID, reason string) (*Profile, error)

	// ── public ──
	Directory(ctx context.Context, f DirectoryFilter) ([]Public, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*Public, error)

	// ProfileIDForUser resolves the factory profile owned by a FACTORY user.
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	// OwnerUserID resolves the user owning a factory profile.
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

type service struct {
	repo     Repository
	uploader storage.Uploader
	notifier notification.Notifier
	cache    cache.Cache
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, uploader storage.Uploader, notifier notification.Notifier, c cache.Cache, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		uploader: uploader,
		notifier: notifier,
		cache:    c,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) GetOwnProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, d Details) (*Profile, error) {
	d = trimDetails(d)
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p.VerificationStatus == StatusVerified {
		p.PendingChanges = database.NewJSONB(&PendingChanges{Details: d, SubmittedAt: s.now().UTC()})
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		s.notifyAdmins(ctx, notification.Message{
			Type:  notification.TypeProfileChange,
			Title: fmt.Sprintf("%s submitted profile changes for review", p.CompanyName),
			Link:  "/admin/factories/" + p.ID.String(),
		})
		return p, nil
	}

	p.Details = d
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UploadDocument(ctx context.Context, userID uuid.UUID, name string, file io.Reader) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("document name is required")
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.VerificationStatus == StatusPending {
		return nil, apperr.Conflict("documents cannot change while verification is pending")
	}

	obj, err := s.uploader.Upload(ctx, "factories/"+p.ID.String()+"/documents", storage.KindDocument, file)
	if err != nil {
		return nil, err
	}
	p.Documents.Data = append(p.Documents.Data, Document{
		ID:          uuid.New(),
		Name:        name,
		URL:         obj.URL,
		Key:         obj.Key,
		ContentType: obj.ContentType,
		UploadedAt:  s.now().UTC(),
	})
	if err := s.save(ctx, p); err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	return p, nil
}

func (s *service) RemoveDocument(ctx context.Context, userID, documentID uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.VerificationStatus == StatusPending {
		return nil, apperr.Conflict("documents cannot change while verification is pending")
	}

	kept := make([]Document, 0, len(p.Documents.Data))
	var removed *Document
	for i, d := range p.Documents.Data {
		if d.ID == documentID {
			removed = &p.Documents.Data[i]
			continue
		}
		kept = append(kept, d)
	}
	if removed == nil {
		return nil, apperr.NotFound("document")
	}
	key := removed.Key
	p.Documents.Data = kept
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.removeObject(ctx, key)
	return p, nil
}

func (s *service) SubmitForVerification(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.VerificationStatus != StatusUnverified && p.VerificationStatus != StatusRejected {
		return nil, apperr.Conflict("cannot submit for verification from status %s", p.VerificationStatus)
	}
	if len(p.Documents.Data) == 0 {
		return nil, apperr.Invalid("upload at least one document before submitting")
	}

	p.VerificationStatus = StatusPending
	p.RejectionReason = ""
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.notifyAdmins(ctx, notification.Message{
		Type:  notification.TypeVerification,
		Title: fmt.Sprintf("%s requested verification", p.CompanyName),
		Link:  "/admin/verifications/" + p.ID.String(),
	})
	return p, nil
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListPendingVerifications(ctx context.Context) ([]Profile, error) {
	return s.repo.ListByStatus(ctx, StatusPending)
}

func (s *service) ApproveVerification(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.pendingVerification(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.VerificationStatus = StatusVerified
	p.RejectionReason = ""
	p.VerifiedAt = &now
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, p, notification.Message{
		Type:  notification.TypeVerification,
		Title: "Your factory is now verified",
		Link:  "/factory/profile",
		SMS:   true,
	})
	return p, nil
}

func (s *service) RejectVerification(ctx context.Context, id uuid.UUID, reason string) (*Profile, error) {
	reason = strings.TrimSpace(reason)
	if err := validate.Struct(RejectRequest{Reason: reason}); err != nil {
		return nil, err
	}
	p, err := s.pendingVerification(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VerificationStatus = StatusRejected
	p.RejectionReason = reason
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, p, notification.Message{
		Type:  notification.TypeVerification,
		Title: "Your verification request was rejected",
		Body:  reason,
		Link:  "/factory/profile",
		SMS:   true,
	})
	return p, nil
}

func (s *service) ListPendingChanges(ctx context.Context) ([]Profile, error) {
	return s.repo.ListWithPendingChanges(ctx)
}

func (s *service) ApproveChanges(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pending := p.PendingChanges.Data
	if pending == nil {
		return nil, apperr.Conflict("factory has no pending changes")
	}
	p.Details = pending.Details
	p.PendingChanges.Data = nil
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, p, notification.Message{
		Type:  notification.TypeProfileChange,
		Title: "Your profile changes were approved",
		Link:  "/factory/profile",
	})
	return p, nil
}

func (s *service) RejectChanges(ctx context.Context, id uuid.UUID, reason string) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PendingChanges.Data == nil {
		return nil, apperr.Conflict("factory has no pending changes")
	}
	p.PendingChanges.Data = nil
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, p, notification.Message{
		Type:  notification.TypeProfileChange,
		Title: "Your profile changes were not approved",
		Body:  strings.TrimSpace(reason),
		Link:  "/factory/profile",
	})
	return p, nil
}

func (s *service) Directory(ctx context.Context, f DirectoryFilter) ([]Public, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Sort != "name" {
		f.Sort = "newest"
	}
	key := "directory:" + cache.KeyOf(f)
	var list []Public
	if s.cache.Get(ctx, CacheNamespace, key, &list) {
		return list, nil
	}
	list, err := s.repo.Directory(ctx, f)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, key, list)
	return list, nil
}

func (s *service) GetPublic(ctx context.Context, id uuid.UUID) (*Public, error) {
	key := "detail:" + id.String()
	var p Public
	if s.cache.Get(ctx, CacheNamespace, key, &p) {
		return &p, nil
	}
	got, err := s.repo.GetPublic(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, key, got)
	return got, nil
}

func (s *service) ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *service) OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) pendingVerification(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.VerificationStatus != StatusPending {
		return nil, apperr.Conflict("factory verification is %s, not PENDING", p.VerificationStatus)
	}
	return p, nil
}

// save persists p and drops the cached public pages.
func (s *service) save(ctx context.Context, p *Profile) error {
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("save factory profile: %w", err)
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	return nil
}

func (s *service) removeObject(ctx context.Context, key string) {
	if err := s.uploader.Remove(ctx, key); err != nil {
		s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *service) notifyOwner(ctx context.Context, p *Profile, msg notification.Message) {
	if err := s.notifier.Notify(ctx, p.UserID, msg); err != nil {
		s.logger.Warn("factory notification failed", zap.String("factory_id", p.ID.String()), zap.Error(err))
	}
}

func (s *service) notifyAdmins(ctx context.Context, msg notification.Message) {
	if err := s.notifier.NotifyAdmins(ctx, msg); err != nil {
		s.logger.Warn("admin notification failed", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

func trimDetails(d Details) Details {
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.Description = strings.TrimSpace(d.Description)
	d.Industry = strings.TrimSpace(d.Industry)
	d.City = strings.TrimSpace(d.City)
	d.Country = strings.TrimSpace(d.Country)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Website = strings.TrimSpace(d.Website)
	d.LogoURL = strings.TrimSpace(d.LogoURL)
	return d
}
