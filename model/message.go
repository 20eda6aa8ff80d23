package model

import "time"

// Message is append-only. The total order within a conversation is
// (SentAt, ID): SentAt may collide under load, the auto-increment ID breaks
// the tie. SenderID is kept on assistant messages too, pointing at the human
// whose mention triggered the reply.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_conversation_sent_at" json:"conversation_id"`
	SenderID       *uint     `json:"sender_id,omitempty"`
	Sender         *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsAssistant    bool      `gorm:"default:false" json:"is_assistant"`
	SentAt         time.Time `gorm:"index:idx_conversation_sent_at" json:"sent_at"`
}
