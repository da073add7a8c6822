package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCards implements the ledger over a map with the repository's exact
// semantics: first stamp creates, redeem is guarded by stars >= goal.
type fakeCards struct {
	cards map[string]Card
}

func newFakeCards() *fakeCards {
	return &fakeCards{cards: make(map[string]Card)}
}

func (f *fakeCards) Create(ctx context.Context, card Card) error {
	if _, ok := f.cards[card.Contact]; ok {
		return ErrCardExists
	}
	f.cards[card.Contact] = card
	return nil
}

func (f *fakeCards) GetByContact(ctx context.Context, contact string) (Card, error) {
	card, ok := f.cards[contact]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	return card, nil
}

func (f *fakeCards) List(ctx context.Context, limit, offset int64) ([]Card, int64, error) {
	out := make([]Card, 0, len(f.cards))
	for _, card := range f.cards {
		out = append(out, card)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCards) AddStar(ctx context.Context, contact, name string, now time.Time) (Card, error) {
	card, ok := f.cards[contact]
	if !ok {
		card = Card{Contact: contact, Goal: DefaultGoal, CreatedAt: now}
	}
	if name != "" {
		card.Name = name
	}
	card.Stars++
	card.LifetimeAppointments++
	card.UpdatedAt = now
	f.cards[contact] = card
	return card, nil
}

func (f *fakeCards) Redeem(ctx context.Context, contact string, now time.Time) (Card, error) {
	card, ok := f.cards[contact]
	if !ok {
		return Card{}, ErrCardNotFound
	}
	if card.Stars < card.Goal {
		return Card{}, ErrInsufficientStars
	}
	card.Stars -= card.Goal
	card.UpdatedAt = now
	f.cards[contact] = card
	return card, nil
}

func TestAddStarCreatesCard(t *testing.T) {
	svc := NewService(newFakeCards(), time.UTC)

	card, err := svc.AddStar(context.Background(), " +5511999990000 ", "John Doe")
	require.NoError(t, err)
	assert.Equal(t, "+5511999990000", card.Contact)
	assert.Equal(t, 1, card.Stars)
	assert.Equal(t, DefaultGoal, card.Goal)
	assert.Equal(t, 1, card.LifetimeAppointments)
}

func TestAddStarAccumulates(t *testing.T) {
	svc := NewService(newFakeCards(), time.UTC)

	var card Card
	var err error
	for i := 0; i < 3; i++ {
		card, err = svc.AddStar(context.Background(), "+5511999990000", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, card.Stars)
	assert.Equal(t, 3, card.LifetimeAppointments)
}

func TestRedeemSubtractsGoal(t *testing.T) {
	repo := newFakeCards()
	svc := NewService(repo, time.UTC)

	for i := 0; i < 7; i++ {
		_, err := svc.AddStar(context.Background(), "+5511999990000", "")
		require.NoError(t, err)
	}

	card, err := svc.Redeem(context.Background(), "+5511999990000")
	require.NoError(t, err)
	// Surplus stars carry over after the redemption.
	assert.Equal(t, 2, card.Stars)
	assert.Equal(t, 7, card.LifetimeAppointments)
}

func TestRedeemInsufficientStars(t *testing.T) {
	repo := newFakeCards()
	svc := NewService(repo, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.AddStar(context.Background(), "+5511999990000", "")
		require.NoError(t, err)
	}

	_, err := svc.Redeem(context.Background(), "+5511999990000")
	assert.ErrorIs(t, err, ErrInsufficientStars)

	card, err := svc.Get(context.Background(), "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 3, card.Stars)
}

func TestRedeemUnknownCard(t *testing.T) {
	svc := NewService(newFakeCards(), time.UTC)

	_, err := svc.Redeem(context.Background(), "+5511999990000")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCreateCard(t *testing.T) {
	svc := NewService(newFakeCards(), time.UTC)

	card, err := svc.CreateCard(context.Background(), "+5511999990000", "John Doe", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGoal, card.Goal)
	assert.Zero(t, card.Stars)

	_, err = svc.CreateCard(context.Background(), "+5511999990000", "John Doe", 0)
	assert.ErrorIs(t, err, ErrCardExists)
}

func TestCreateCardCustomGoal(t *testing.T) {
	svc := NewService(newFakeCards(), time.UTC)

	card, err := svc.CreateCard(context.Background(), "+5511888880000", "Jane Doe", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, card.Goal)
}
