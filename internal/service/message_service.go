package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/storage"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxMessageLength = 5000
	maxSubjectLength = 200
)

// MessageService handles customer to seller conversations
type MessageService struct {
	store          MessageStore
	uploader       Uploader
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewMessageService creates a new message service
func NewMessageService(store MessageStore, uploader Uploader, eventPublisher EventPublisher) *MessageService {
	return &MessageService{
		store:          store,
		uploader:       uploader,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// StartConversationRequest opens a thread with a seller, optionally about
// one product
type StartConversationRequest struct {
	SellerID  uuid.UUID  `json:"seller_id" binding:"required"`
	ProductID *uuid.UUID `json:"product_id"`
	Subject   string     `json:"subject"`
}

// StartConversation returns the customer's thread with the seller about the
// product, creating it on first contact. The product must belong to the
// seller. created reports whether it is new.
func (s *MessageService) StartConversation(ctx context.Context, customerID uuid.UUID, role models.Role, req StartConversationRequest) (conv *models.Conversation, created bool, err error) {
	ctx, span := util.StartSpan(ctx, "MessageService.StartConversation")
	defer func() { util.EndSpan(span, err) }()

	if role != models.RoleCustomer {
		return nil, false, apperr.Unauthorized("only customers can start conversations")
	}
	if req.SellerID == customerID {
		return nil, false, apperr.Validation("cannot start a conversation with yourself")
	}
	subject := strings.TrimSpace(req.Subject)
	if utf8.RuneCountInString(subject) > maxSubjectLength {
		return nil, false, apperr.Validation("subject must be at most %d characters", maxSubjectLength)
	}

	var productID uuid.NullUUID
	if req.ProductID != nil {
		product, err := s.store.GetProductByID(ctx, *req.ProductID)
		if err != nil {
			return nil, false, err
		}
		if product.SellerID != req.SellerID {
			return nil, false, apperr.Validation("product %s is not sold by seller %s", product.ID, req.SellerID)
		}
		productID = uuid.NullUUID{UUID: product.ID, Valid: true}
	}

	conv, created, err = s.store.GetOrCreateConversation(ctx, customerID, req.SellerID, productID, subject)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("Conversation started",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("customer_id", customerID.String()),
			zap.String("seller_id", req.SellerID.String()))
	}
	return conv, created, nil
}

// SendMessage appends a message, with an optional attachment, to a
// conversation the sender takes part in.
func (s *MessageService) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, text string, attachment *Upload) (msg *models.Message, err error) {
	ctx, span := util.StartSpan(ctx, "MessageService.SendMessage")
	defer func() { util.EndSpan(span, err) }()

	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return nil, apperr.Validation("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, apperr.Validation("message must be at most %d characters", MaxMessageLength)
	}

	conv, err := s.participantConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	msg = &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		MessageText:    text,
	}
	if attachment != nil {
		obj, err := s.uploader.Upload(ctx, senderID, storage.KindAttachment, attachment.Filename, attachment.Size, attachment.Reader)
		if err != nil {
			return nil, err
		}
		msg.AttachmentURL = &obj.URL
		msg.AttachmentType = &obj.ContentType
	}

	if _, err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	util.MessagesSentTotal.WithLabelValues(string(msg.SenderType)).Inc()
	s.logger.Debug("Message sent",
		zap.String("message_id", msg.ID.String()),
		zap.String("conversation_id", conversationID.String()))

	recipient := conv.SellerID
	if senderID == conv.SellerID {
		recipient = conv.CustomerID
	}
	event := &models.MessageSentEvent{
		BaseEvent:      models.NewBaseEvent(models.EventTypeMessageSent),
		MessageID:      msg.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipient,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.eventPublisher.PublishMessageSent(ctx, event); err != nil {
		s.logger.Error("Failed to publish MessageSent event", zap.Error(err))
	}

	return msg, nil
}

func (s *MessageService) participantConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Unauthorized("not a participant of conversation %s", conversationID)
	}
	return conv, nil
}

// ListConversations returns the user's threads with unread counts
func (s *MessageService) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.ListConversations")
	defer span.End()

	convs, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if convs == nil {
		convs = []models.ConversationSummary{}
	}
	return convs, nil
}

func (s *MessageService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.GetConversation")
	defer span.End()

	return s.participantConversation(ctx, userID, conversationID)
}

// ListMessages returns a conversation's messages ordered by creation time
func (s *MessageService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.ListMessages")
	defer span.End()

	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID, limit)
}

// MarkMessagesAsRead marks everything the other side sent as read and returns
// how many messages changed.
func (s *MessageService) MarkMessagesAsRead(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.MarkMessagesAsRead")
	defer span.End()

	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return 0, err
	}

	n, err := s.store.MarkMessagesRead(ctx, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	event := &models.MessagesReadEvent{
		BaseEvent:      models.NewBaseEvent(models.EventTypeMessagesRead),
		ConversationID: conversationID,
		ReaderID:       userID,
		Count:          n,
	}
	if err := s.eventPublisher.PublishMessagesRead(ctx, event); err != nil {
		s.logger.Error("Failed to publish MessagesRead event", zap.Error(err))
	}
	return n, nil
}

// UnreadCount counts unread messages addressed to the user
func (s *MessageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.UnreadCount")
	defer span.End()

	return s.store.UnreadCount(ctx, userID)
}

// UpdateConversationStatus lets either participant close, archive or reopen
// a conversation
func (s *MessageService) UpdateConversationStatus(ctx context.Context, userID, conversationID uuid.UUID, status models.ConversationStatus) (*models.Conversation, error) {
	ctx, span := util.StartSpan(ctx, "MessageService.UpdateConversationStatus")
	defer span.End()

	if !status.Valid() {
		return nil, apperr.Validation("unknown conversation status %q", status)
	}
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	conv, err := s.store.UpdateConversationStatus(ctx, conversationID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Conversation status changed",
		zap.String("conversation_id", conversationID.String()),
		zap.String("status", string(status)))
	return conv, nil
}
