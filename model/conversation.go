package model

import "time"

type ConversationKind string

const (
	KindPrivate ConversationKind = "private"
	KindGroup   ConversationKind = "group"
)

// Conversation is a private pair or a named group. Private conversations hold
// exactly two participants and are unique per unordered pair; group
// membership only grows.
type Conversation struct {
	ID           uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind         ConversationKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	Name         string           `gorm:"type:varchar(255)" json:"name,omitempty"`
	Participants []User           `gorm:"many2many:conversation_participants" json:"participants,omitempty"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
