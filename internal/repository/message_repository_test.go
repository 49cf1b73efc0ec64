package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatpdf/internal/model"
)

func TestChronologicalReversesDescPage(t *testing.T) {
	messages := []model.Message{
		{ID: 6, Role: model.RoleAssistant},
		{ID: 5, Role: model.RoleUser},
		{ID: 4, Role: model.RoleAssistant},
		{ID: 3, Role: model.RoleUser},
	}

	chronological(messages)

	assert.Equal(t, uint(3), messages[0].ID)
	assert.Equal(t, uint(4), messages[1].ID)
	assert.Equal(t, uint(5), messages[2].ID)
	assert.Equal(t, uint(6), messages[3].ID)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[3].Role)
}

func TestChronologicalShortSlices(t *testing.T) {
	chronological(nil)

	single := []model.Message{{ID: 1}}
	chronological(single)
	assert.Equal(t, uint(1), single[0].ID)
}
