package model

import "time"

// ChatSession binds one uploaded document to its private vector-index
// namespace. NamespaceID is generated at ingestion and never reused; every
// vector stored under it comes from this session's document.
type ChatSession struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	DocumentName string    `gorm:"size:256;not null" json:"document_name"`
	NamespaceID  string    `gorm:"size:128;not null;uniqueIndex" json:"namespace_id"`
	CreatedAt    time.Time `json:"created_at"`
}
