package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one turn in a session. A bot turn is created with empty
// content before streaming begins and updated in place exactly once when
// the stream finishes.
type Message struct {
	gorm.Model
	ChatbotID uint      `gorm:"index;not null"`
	SessionID string    `gorm:"size:64;index;not null"`
	IsUser    bool      `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"autoCreateTime"`
}
