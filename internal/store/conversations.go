package store

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const conversationColumns = `c.id, c.customer_id, c.seller_id, c.product_id, c.subject, c.status,
	c.last_message_at, c.created_at, c.updated_at`

const messageColumns = `id, conversation_id, sender_id, sender_type, message_text, attachment_url,
	attachment_type, is_read, read_at, created_at`

// GetOrCreateConversation returns the thread for (customer, seller, product),
// creating it if needed. A product must be one the seller sells. Concurrent
// callers converge on the same row through the unique participants index.
// created reports whether this call inserted it.
func (s *Store) GetOrCreateConversation(ctx context.Context, customerID, sellerID uuid.UUID, productID uuid.NullUUID, subject string) (conv *models.Conversation, created bool, err error) {
	var c models.Conversation
	err = s.db.GetContext(ctx, &c, `
		INSERT INTO conversations AS c (customer_id, seller_id, product_id, subject)
		SELECT $1, $2, $3::uuid, $4
		WHERE $3::uuid IS NULL
			OR EXISTS (SELECT 1 FROM products p WHERE p.id = $3::uuid AND p.seller_id = $2)
		ON CONFLICT (customer_id, seller_id, COALESCE(product_id, '00000000-0000-0000-0000-000000000000'::uuid))
		DO NOTHING
		RETURNING `+conversationColumns,
		customerID, sellerID, productID, subject)
	if err == nil {
		return &c, true, nil
	}
	if isForeignKeyViolation(err) {
		return nil, false, apperr.NotFound("seller or product does not exist")
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	err = s.db.GetContext(ctx, &c, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.customer_id = $1 AND c.seller_id = $2 AND c.product_id IS NOT DISTINCT FROM $3::uuid`,
		customerID, sellerID, productID)
	if isNoRows(err) {
		// nothing inserted and nothing to converge on: the product guard failed
		return nil, false, apperr.NotFound("product %s is not sold by seller %s", productID.UUID, sellerID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &c, false, nil
}

// GetConversation retrieves a conversation by ID
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.GetContext(ctx, &c, "SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("conversation not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversationsForUser returns every thread the user takes part in with
// the number of messages waiting for them, most recently active first.
func (s *Store) ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	summaries := []models.ConversationSummary{}
	err := s.db.SelectContext(ctx, &summaries, `
		SELECT `+conversationColumns+`,
			(SELECT COUNT(*) FROM messages m
			 WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND NOT m.is_read) AS unread_count
		FROM conversations c
		WHERE c.customer_id = $1 OR c.seller_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id`, userID)
	return summaries, err
}

// CreateMessage appends a message and bumps the conversation's
// last_message_at in one transaction. The sender must take part in the
// conversation; its sender_type follows from which side it is on. Closed
// conversations refuse new messages and archived ones become active again.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &conv,
			"SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1 FOR UPDATE", msg.ConversationID)
		if isNoRows(err) {
			return apperr.NotFound("conversation not found: %s", msg.ConversationID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock conversation: %w", err)
		}

		switch msg.SenderID {
		case conv.CustomerID:
			msg.SenderType = models.RoleCustomer
		case conv.SellerID:
			msg.SenderType = models.RoleSeller
		default:
			return apperr.Unauthorized("not a participant of conversation %s", conv.ID)
		}
		if conv.Status == models.ConversationClosed {
			return apperr.Validation("conversation is closed")
		}

		err = tx.GetContext(ctx, msg, `
			INSERT INTO messages (conversation_id, sender_id, sender_type, message_text,
				attachment_url, attachment_type)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+messageColumns,
			msg.ConversationID, msg.SenderID, msg.SenderType, msg.MessageText,
			msg.AttachmentURL, msg.AttachmentType)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		return tx.GetContext(ctx, &conv, `
			UPDATE conversations AS c
			SET last_message_at = $1, status = $2, updated_at = NOW()
			WHERE c.id = $3
			RETURNING `+conversationColumns,
			msg.CreatedAt, models.ConversationActive, conv.ID)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListMessages returns a conversation's messages oldest first. A positive
// limit keeps only the most recent ones.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	query := "SELECT " + messageColumns + " FROM messages WHERE conversation_id = $1 ORDER BY created_at, id"
	args := []interface{}{conversationID}
	if limit > 0 {
		query = "SELECT * FROM (SELECT " + messageColumns +
			" FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2) recent" +
			" ORDER BY created_at, id"
		args = append(args, limit)
	}

	err := s.db.SelectContext(ctx, &messages, query, args...)
	return messages, err
}

// MarkMessagesRead flips every unread message in the conversation that the
// reader did not send. It returns how many messages changed.
func (s *Store) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read`,
		conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCount counts the messages waiting for a user across all threads
func (s *Store) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.customer_id = $1 OR c.seller_id = $1) AND m.sender_id <> $1 AND NOT m.is_read`, userID)
	return count, err
}

// UpdateConversationStatus closes, archives or reopens a conversation
func (s *Store) UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.GetContext(ctx, &c, `
		UPDATE conversations AS c SET status = $1, updated_at = NOW()
		WHERE c.id = $2
		RETURNING `+conversationColumns, status, id)
	if isNoRows(err) {
		return nil, apperr.NotFound("conversation not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
