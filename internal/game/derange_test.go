/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authored(n int) []Authored {
	items := make([]Authored, n)
	for i := range items {
		items[i] = Authored{
			Sentence: fmt.Sprintf("sentence %d", i),
			AuthorID: fmt.Sprintf("p%d", i),
		}
	}
	return items
}

func TestDerangeShortLists(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))

	assert.Empty(t, Derange(nil, rng))

	one := authored(1)
	got := Derange(one, rng)
	assert.Equal(t, one, got)
	got[0].Sentence = "changed"
	assert.Equal(t, "sentence 0", one[0].Sentence, "result must be a copy")
}

func TestDerangeHasNoFixedPoints(t *testing.T) {
	for n := 2; n <= 8; n++ {
		for seed := range uint64(50) {
			items := authored(n)
			got := Derange(items, rand.New(rand.NewPCG(seed, uint64(n))))

			require.Len(t, got, n)
			assert.ElementsMatch(t, items, got, "n=%d seed=%d is not a permutation", n, seed)
			for i := range items {
				assert.NotEqual(t, items[i].AuthorID, got[i].AuthorID, "n=%d seed=%d fixed point at %d", n, seed, i)
			}
		}
	}
}

func TestDerangeDoesNotModifyInput(t *testing.T) {
	items := authored(5)
	Derange(items, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, authored(5), items)
}

func TestNoFixedPoints(t *testing.T) {
	items := authored(3)
	rotated := []Authored{items[1], items[2], items[0]}

	assert.True(t, noFixedPoints(items, rotated))
	assert.False(t, noFixedPoints(items, items))
}

func TestAssignSentencesWithNonAuthors(t *testing.T) {
	players := []Player{
		{ID: "a", Sentence: "a sloth on skis"},
		{ID: "b"},
		{ID: "c", Sentence: "a crab in a suit"},
		{ID: "d", Sentence: "   "},
		{ID: "e", Sentence: "a goose with a map"},
	}
	assignSentences(players, rand.New(rand.NewPCG(11, 12)))

	sentences := []string{"a sloth on skis", "a crab in a suit", "a goose with a map"}
	for _, p := range players {
		assert.Contains(t, sentences, p.AssignedSentence, "player %s", p.ID)
		if hasSentence(p) {
			assert.NotEqual(t, p.Sentence, p.AssignedSentence, "player %s drew their own sentence", p.ID)
		}
	}
	assert.NotEqual(t, players[1].AssignedSentence, players[3].AssignedSentence, "non-authors cycle through the list")
}

func TestAssignSentencesWithoutAuthors(t *testing.T) {
	players := []Player{{ID: "a", AssignedSentence: "stale"}, {ID: "b"}}
	assignSentences(players, rand.New(rand.NewPCG(1, 1)))

	for _, p := range players {
		assert.Empty(t, p.AssignedSentence)
	}
}
