package messaging

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// MaxPage bounds a single poll response.
const MaxPage = 200

// previewLen is the length of message bodies quoted in notifications.
const previewLen = 120

// Factories resolves between factory profiles and their owning users.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines buyer/factory messaging.
type Service interface {
	// Start returns the caller's conversation with the named counterpart,
	// creating it on first contact, and sends req.Body when present.
	Start(ctx context.Context, actor identity.Identity, req StartRequest) (*Conversation, error)
	List(ctx context.Context, actor identity.Identity, limit, offset int) ([]Conversation, error)
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Conversation, error)
	// Messages returns messages newer than after, oldest first. A zero after
	// returns the latest page.
	Messages(ctx context.Context, actor identity.Identity, id uuid.UUID, after time.Time, limit int) ([]Message, error)
	// Send posts a message. file may be nil; a message needs a body or a file.
	Send(ctx context.Context, actor identity.Identity, id uuid.UUID, req SendRequest, file io.Reader) (*Message, error)
	MarkRead(ctx context.Context, actor identity.Identity, id uuid.UUID) (int64, error)
}

type service struct {
	repo      Repository
	factories Factories
	uploader  storage.Uploader
	notifier  notification.Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, factories Factories, uploader storage.Uploader, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{repo: repo, factories: factories, uploader: uploader, notifier: notifier, logger: logger}
}

func (s *service) Start(ctx context.Context, actor identity.Identity, req StartRequest) (*Conversation, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	c := &Conversation{ID: uuid.New(), ProductID: req.ProductID}
	switch actor.Role {
	case identity.RoleBuyer:
		if req.FactoryID == nil {
			return nil, apperr.Invalid("factory_id is required")
		}
		if _, err := s.factories.OwnerUserID(ctx, *req.FactoryID); err != nil {
			return nil, err
		}
		c.BuyerID, c.FactoryID = actor.UserID, *req.FactoryID
	case identity.RoleFactory:
		if req.BuyerID == nil {
			return nil, apperr.Invalid("buyer_id is required")
		}
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		ok, err := s.repo.HasDealings(ctx, *req.BuyerID, factoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("factories can only message buyers they have dealt with")
		}
		c.BuyerID, c.FactoryID = *req.BuyerID, factoryID
	default:
		return nil, apperr.Forbidden("only buyers and factories can start conversations")
	}

	c, err := s.repo.GetOrCreate(ctx, c)
	if err != nil {
		return nil, err
	}
	if req.Body != "" {
		if _, err := s.post(ctx, actor, c, req.Body, nil); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *service) List(ctx context.Context, actor identity.Identity, limit, offset int) ([]Conversation, error) {
	f := ListFilter{ViewerID: actor.UserID, Limit: limit, Offset: offset}
	switch actor.Role {
	case identity.RoleBuyer:
		f.BuyerID = &actor.UserID
	case identity.RoleFactory:
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		f.FactoryID = &factoryID
	default:
		return nil, apperr.Forbidden("only buyers and factories have conversations")
	}
	return s.repo.List(ctx, f)
}

func (s *service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Conversation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.counterpart(ctx, actor, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Messages(ctx context.Context, actor identity.Identity, id uuid.UUID, after time.Time, limit int) ([]Message, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPage {
		limit = MaxPage
	}
	return s.repo.Messages(ctx, id, after, limit)
}

func (s *service) Send(ctx context.Context, actor identity.Identity, id uuid.UUID, req SendRequest, file io.Reader) (*Message, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Body == "" && file == nil {
		return nil, apperr.Invalid("message needs a body or an attachment")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, actor, c, req.Body, file)
}

func (s *service) MarkRead(ctx context.Context, actor identity.Identity, id uuid.UUID) (int64, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return 0, err
	}
	return s.repo.MarkRead(ctx, id, actor.UserID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// counterpart checks that actor is one side of c and returns the user on the
// other side.
func (s *service) counterpart(ctx context.Context, actor identity.Identity, c *Conversation) (uuid.UUID, error) {
	switch actor.Role {
	case identity.RoleBuyer:
		if c.BuyerID == actor.UserID {
			return s.factories.OwnerUserID(ctx, c.FactoryID)
		}
	case identity.RoleFactory:
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err == nil && factoryID == c.FactoryID {
			return c.BuyerID, nil
		}
	}
	return uuid.Nil, apperr.Forbidden("not a participant of this conversation")
}

func (s *service) post(ctx context.Context, actor identity.Identity, c *Conversation, body string, file io.Reader) (*Message, error) {
	recipient, err := s.counterpart(ctx, actor, c)
	if err != nil {
		return nil, err
	}

	m := &Message{ID: uuid.New(), ConversationID: c.ID, SenderID: actor.UserID, Body: body}
	var key string
	if file != nil {
		obj, err := s.uploader.Upload(ctx, "messages/"+c.ID.String(), storage.KindAny, file)
		if err != nil {
			return nil, err
		}
		key = obj.Key
		m.AttachmentURL = obj.URL
		m.AttachmentType = AttachmentFile
		if strings.HasPrefix(obj.ContentType, "image/") {
			m.AttachmentType = AttachmentImage
		}
	}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		if key != "" {
			if rmErr := s.uploader.Remove(ctx, key); rmErr != nil {
				s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(rmErr))
			}
		}
		return nil, err
	}

	preview := body
	if preview == "" {
		preview = "Sent an attachment"
	}
	if r := []rune(preview); len(r) > previewLen {
		preview = string(r[:previewLen]) + "…"
	}
	err = s.notifier.Notify(ctx, recipient, notification.Message{
		Type:  notification.TypeMessage,
		Title: "New message",
		Body:  preview,
		Link:  "/messages/" + c.ID.String(),
	})
	if err != nil {
		s.logger.Warn("message notification failed", zap.String("conversation_id", c.ID.String()), zap.Error(err))
	}
	return m, nil
}
