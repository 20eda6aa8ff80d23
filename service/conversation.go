package service

import (
	"errors"
	"fmt"
	"strings"

	"chatrelay/model"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ConversationService is the conversation directory: it owns conversation
// identity, kind and membership. Every mutation is immediately visible to
// subsequent reads through the shared DB handle.
type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// Resolve loads a conversation with its participants.
func (s *ConversationService) Resolve(conversationID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.Preload("Participants").First(&conv, conversationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, conversationID)
		}
		return nil, err
	}
	return &conv, nil
}

// IsMember reports whether the user belongs to the conversation.
func (s *ConversationService) IsMember(conversationID, userID uint) (bool, error) {
	var count int64
	err := s.db.Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreatePrivate returns the private conversation for the unordered pair
// {a, b}, creating it lazily on first use. Calling it twice, in either
// argument order, yields the same conversation.
func (s *ConversationService) CreatePrivate(a, b uint) (*model.Conversation, error) {
	if a == b {
		return nil, fmt.Errorf("%w: a private conversation needs two distinct participants", ErrInvalidArgument)
	}
	if err := s.ensureUsersExist([]uint{a, b}); err != nil {
		return nil, err
	}

	var conv model.Conversation
	err := s.db.
		Joins("JOIN conversation_participants pa ON pa.conversation_id = conversations.id AND pa.user_id = ?", a).
		Joins("JOIN conversation_participants pb ON pb.conversation_id = conversations.id AND pb.user_id = ?", b).
		Where("conversations.kind = ?", model.KindPrivate).
		First(&conv).Error
	if err == nil {
		return s.Resolve(conv.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{Kind: model.KindPrivate}
	if err := s.createWithParticipants(&conv, []uint{a, b}); err != nil {
		return nil, err
	}
	return s.Resolve(conv.ID)
}

// CreateGroup creates a named group containing the creator plus the given
// participants. Duplicates are collapsed before the minimum-size check.
func (s *ConversationService) CreateGroup(creatorID uint, name string, participantIDs []uint) (*model.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidArgument)
	}
	if lo.Contains(participantIDs, 0) {
		return nil, fmt.Errorf("%w: malformed participant id", ErrInvalidArgument)
	}

	members := lo.Uniq(append([]uint{creatorID}, participantIDs...))
	if len(members) < 2 {
		return nil, fmt.Errorf("%w: a group needs at least two unique participants", ErrInvalidArgument)
	}
	if err := s.ensureUsersExist(members); err != nil {
		return nil, err
	}

	conv := model.Conversation{Kind: model.KindGroup, Name: name}
	if err := s.createWithParticipants(&conv, members); err != nil {
		return nil, err
	}
	return s.Resolve(conv.ID)
}

// AddMembers grows a group's membership. The requester must already be a
// member; re-adding an existing member is a no-op, not an error.
func (s *ConversationService) AddMembers(conversationID, requesterID uint, newIDs []uint) (*model.Conversation, error) {
	conv, err := s.Resolve(conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Kind != model.KindGroup {
		return nil, fmt.Errorf("%w: members can only be added to group conversations", ErrInvalidArgument)
	}

	member, err := s.IsMember(conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: requester %d is not a participant", ErrNotAuthorized, requesterID)
	}

	if len(newIDs) == 0 || lo.Contains(newIDs, 0) {
		return nil, fmt.Errorf("%w: at least one well-formed user id is required", ErrInvalidArgument)
	}

	existing := lo.Map(conv.Participants, func(u model.User, _ int) uint { return u.ID })
	toAdd, _ := lo.Difference(lo.Uniq(newIDs), existing)
	if len(toAdd) == 0 {
		return conv, nil
	}
	if err := s.ensureUsersExist(toAdd); err != nil {
		return nil, err
	}

	users := lo.Map(toAdd, func(id uint, _ int) model.User { return model.User{ID: id} })
	if err := s.db.Model(conv).Association("Participants").Append(users); err != nil {
		return nil, err
	}
	return s.Resolve(conversationID)
}

// ListForUser returns the conversations the user participates in, most
// recent first.
func (s *ConversationService) ListForUser(userID uint, page, limit int) ([]model.Conversation, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var convs []model.Conversation
	err := s.db.Preload("Participants").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID).
		Order("conversations.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *ConversationService) ensureUsersExist(ids []uint) error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("%w: unknown participant id", ErrInvalidArgument)
	}
	return nil
}

func (s *ConversationService) createWithParticipants(conv *model.Conversation, ids []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Exec(
				"INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)",
				conv.ID, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
