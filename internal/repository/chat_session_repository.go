package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatpdf/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

// GetByID loads a session without an ownership filter; callers compare the
// owner themselves so a foreign session is reported as unauthorized rather
// than missing.
func (r *ChatSessionRepository) GetByID(id uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

func (r *ChatSessionRepository) ListByUserID(userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *ChatSessionRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.ChatSession{}, id).Error; err != nil {
		return fmt.Errorf("delete chat session failed: %w", err)
	}
	return nil
}
