package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectConversation = `
	SELECT c.id, c.buyer_id, u.name AS buyer_name, c.factory_id, fp.company_name AS factory_name,
	       c.product_id, c.last_message_at, c.created_at
	FROM conversations c
	JOIN users u ON u.id = c.buyer_id
	JOIN factory_profiles fp ON fp.id = c.factory_id`

const selectMessage = `
	SELECT id, conversation_id, sender_id, body, attachment_url, attachment_type, read_at, created_at
	FROM messages`

func (r *postgresRepo) GetOrCreate(ctx context.Context, c *Conversation) (*Conversation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, buyer_id, factory_id, product_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id, factory_id) DO NOTHING`,
		c.ID, c.BuyerID, c.FactoryID, c.ProductID)
	if err != nil {
		return nil, err
	}
	var out Conversation
	err = r.db.GetContext(ctx, &out, selectConversation+` WHERE c.buyer_id = $1 AND c.factory_id = $2`, c.BuyerID, c.FactoryID)
	if err != nil {
		return nil, apperr.FromRow(err, "conversation")
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var c Conversation
	if err := r.db.GetContext(ctx, &c, selectConversation+` WHERE c.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "conversation")
	}
	return &c, nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Conversation, error) {
	query := `
		SELECT c.id, c.buyer_id, u.name AS buyer_name, c.factory_id, fp.company_name AS factory_name,
		       c.product_id, c.last_message_at, c.created_at,
		       COALESCE((SELECT CASE WHEN m.body <> '' THEN m.body ELSE m.attachment_type END
		                 FROM messages m WHERE m.conversation_id = c.id
		                 ORDER BY m.created_at DESC LIMIT 1), '') AS last_message,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL) AS unread_count
		FROM conversations c
		JOIN users u ON u.id = c.buyer_id
		JOIN factory_profiles fp ON fp.id = c.factory_id
		WHERE 1=1`
	args := []interface{}{f.ViewerID}
	n := 2
	if f.BuyerID != nil {
		query += fmt.Sprintf(` AND c.buyer_id = $%d`, n)
		args = append(args, *f.BuyerID)
		n++
	}
	if f.FactoryID != nil {
		query += fmt.Sprintf(` AND c.factory_id = $%d`, n)
		args = append(args, *f.FactoryID)
		n++
	}
	query += fmt.Sprintf(` ORDER BY COALESCE(c.last_message_at, c.created_at) DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Conversation{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) HasDealings(ctx context.Context, buyerID, factoryID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE buyer_id = $1 AND factory_id = $2)
		    OR EXISTS (SELECT 1 FROM rfq_responses q JOIN rfqs ON rfqs.id = q.rfq_id
		               WHERE rfqs.buyer_id = $1 AND q.factory_id = $2)`,
		buyerID, factoryID)
	return ok, err
}

// AddMessage serialises sends per conversation and stamps created_at after
// taking the lock, so timestamps follow commit order and an after= poll
// cannot skip a message committed late.
func (r *postgresRepo) AddMessage(ctx context.Context, m *Message) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		if err := tx.GetContext(ctx, &locked,
			`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, m.ConversationID); err != nil {
			return apperr.FromRow(err, "conversation")
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, body, attachment_url, attachment_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
			RETURNING created_at`,
			m.ID, m.ConversationID, m.SenderID, m.Body, m.AttachmentURL, m.AttachmentType,
		).Scan(&m.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE conversations SET last_message_at = $1 WHERE id = $2`, m.CreatedAt, m.ConversationID)
		return err
	})
}

func (r *postgresRepo) Messages(ctx context.Context, conversationID uuid.UUID, after time.Time, limit int) ([]Message, error) {
	list := []Message{}
	if after.IsZero() {
		// Latest page, returned oldest first.
		err := r.db.SelectContext(ctx, &list, `
			SELECT * FROM (`+selectMessage+` WHERE conversation_id = $1
			               ORDER BY created_at DESC, id DESC LIMIT $2) latest
			ORDER BY created_at ASC, id ASC`,
			conversationID, limit)
		return list, err
	}
	err := r.db.SelectContext(ctx, &list, selectMessage+`
		WHERE conversation_id = $1 AND created_at > $2
		ORDER BY created_at ASC, id ASC LIMIT $3`,
		conversationID, after, limit)
	return list, err
}

func (r *postgresRepo) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
