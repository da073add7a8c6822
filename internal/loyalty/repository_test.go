package loyalty

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertWithRetryReplaysLostInsertRace(t *testing.T) {
	calls := 0
	card, err := upsertWithRetry(func() (Card, error) {
		calls++
		if calls == 1 {
			return Card{}, mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}
		}
		return Card{Contact: "+5511999990000", Stars: 2, Goal: DefaultGoal}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, card.Stars)
}

func TestUpsertWithRetryGivesUpAfterSecondDuplicate(t *testing.T) {
	calls := 0
	dup := mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}
	_, err := upsertWithRetry(func() (Card, error) {
		calls++
		return Card{}, dup
	})
	assert.Equal(t, 2, calls)
	assert.True(t, mongo.IsDuplicateKeyError(err))
}

func TestUpsertWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	_, err := upsertWithRetry(func() (Card, error) {
		calls++
		return Card{}, boom
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}
