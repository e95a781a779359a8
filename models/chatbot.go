package models

import "gorm.io/gorm"

// Chatbot is the operator-owned configuration consumed by the response
// pipeline. It is read once at the start of an orchestration call and
// treated as immutable for the duration of that call.
type Chatbot struct {
	gorm.Model
	Slug          string `gorm:"uniqueIndex;size:80;not null"`
	Name          string `gorm:"size:200"`
	Prompt        string `gorm:"type:text"`
	ModelName     string `gorm:"size:120"`
	Temperature   int    // 0-100, interpreted as 0.00-1.00
	MaxTokens     int
	VectorStoreID string `gorm:"size:120"`
	RAGEnabled    bool
	FallbackText  string    `gorm:"type:text"`
	Rules         []Rule    `gorm:"constraint:OnDelete:CASCADE"`
	Messages      []Message `gorm:"constraint:OnDelete:CASCADE"`
}

// Rule is one (condition, response) pair. Rules are evaluated in Position
// order; the first condition found in the user message wins.
type Rule struct {
	gorm.Model
	ChatbotID uint   `gorm:"index;not null"`
	Position  int    `gorm:"not null"`
	Condition string `gorm:"size:500;not null"`
	Response  string `gorm:"type:text;not null"`
}
