package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatrelay/model"

	"gorm.io/gorm"
)

// MessageService is the message store: append-only persistence plus the
// recency-anchored history pagination. Durability lives here and only here —
// the broadcaster is best-effort.
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// Pagination describes one history window. Limit is the number of messages
// actually returned, which may be smaller than requested on the last page.
type Pagination struct {
	Page          int   `json:"page"`
	Limit         int   `json:"limit"`
	TotalMessages int64 `json:"totalMessages"`
	TotalPages    int64 `json:"totalPages"`
}

type HistoryPage struct {
	Messages   []model.Message `json:"messages"`
	Pagination Pagination      `json:"pagination"`
}

// Append persists a message, assigning id and sent-at. It does not resolve
// the sender display data; that is Enrich's job.
func (s *MessageService) Append(conversationID uint, senderID *uint, content string, isAssistant bool) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidArgument)
	}

	var count int64
	if err := s.db.Model(&model.Conversation{}).Where("id = ?", conversationID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: unknown conversation %d", ErrInvalidArgument, conversationID)
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		IsAssistant:    isAssistant,
		SentAt:         time.Now(),
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// Enrich resolves the sender display data onto an already stored message.
// Separate from Append so the join is explicit instead of a persistence hook.
func (s *MessageService) Enrich(msg *model.Message) error {
	if msg.SenderID == nil {
		return nil
	}
	var sender model.User
	if err := s.db.First(&sender, *msg.SenderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: sender %d", ErrNotFound, *msg.SenderID)
		}
		return err
	}
	msg.Sender = &sender
	return nil
}

// CountFor returns the number of messages in a conversation.
func (s *MessageService) CountFor(conversationID uint) (int64, error) {
	var count int64
	err := s.db.Model(&model.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error
	return count, err
}

// historyWindow computes the recency-anchored window over an ascending log:
// page 1 is the newest `limit` messages in ascending order, page 2 the block
// immediately before it, and so on.
func historyWindow(total int64, page, limit int) (skip int64, fetchLimit int64, totalPages int64) {
	totalPages = (total + int64(limit) - 1) / int64(limit)

	skip = total - int64(page)*int64(limit)
	if skip < 0 {
		skip = 0
	}

	remaining := total - int64(page-1)*int64(limit)
	fetchLimit = int64(limit)
	if remaining < fetchLimit {
		fetchLimit = remaining
	}
	return skip, fetchLimit, totalPages
}

// History returns one pagination window, oldest-first within the page. Pages
// beyond the end yield an empty window, not an error.
func (s *MessageService) History(conversationID uint, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total, err := s.CountFor(conversationID)
	if err != nil {
		return nil, err
	}

	skip, fetchLimit, totalPages := historyWindow(total, page, limit)

	result := &HistoryPage{
		Messages: []model.Message{},
		Pagination: Pagination{
			Page:          page,
			Limit:         0,
			TotalMessages: total,
			TotalPages:    totalPages,
		},
	}
	if fetchLimit <= 0 {
		return result, nil
	}

	err = s.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Offset(int(skip)).
		Limit(int(fetchLimit)).
		Find(&result.Messages).Error
	if err != nil {
		return nil, err
	}
	result.Pagination.Limit = int(fetchLimit)
	return result, nil
}
