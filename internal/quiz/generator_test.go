package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromText(t *testing.T) {
	banks := newTestBanks(t)
	gen := NewGenerator(banks)

	bank, err := gen.GenerateFromText("Photosynthesis", "Plants convert light into chemical energy...", 10)
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis", bank.Title)
	assert.Equal(t, "Quiz generated from content: Photosynthesis", bank.Description)
	assert.Equal(t, AutoGeneratedCategory, bank.Category)
	require.Len(t, bank.Questions, 1, "the generator always emits one placeholder question")
	assert.Equal(t, 0, bank.Questions[0].CorrectAnswerIndex)
	assert.Len(t, bank.Questions[0].Answers, 4)

	stored, err := banks.Get(bank.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Questions, stored.Questions)
}
