/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math/rand/v2"

const maxDerangeAttempts = 100

// Authored is a sentence and the player who wrote it.
type Authored struct {
	Sentence string
	AuthorID string
}

// Derange reorders items so that no position keeps its original author.
// Lists shorter than two are returned unchanged. If shuffling keeps failing
// the result falls back to a rotation by one.
func Derange(items []Authored, rng *rand.Rand) []Authored {
	out := make([]Authored, len(items))
	copy(out, items)
	if len(items) < 2 {
		return out
	}

	for range maxDerangeAttempts {
		// Fisher-Yates
		for i := len(out) - 1; i > 0; i-- {
			j := rng.IntN(i + 1)
			out[i], out[j] = out[j], out[i]
		}
		if noFixedPoints(items, out) {
			return out
		}
	}

	for i := range items {
		out[i] = items[(i+1)%len(items)]
	}
	return out
}

func noFixedPoints(original, shuffled []Authored) bool {
	for i := range original {
		if original[i].AuthorID == shuffled[i].AuthorID {
			return false
		}
	}
	return true
}

// assignSentences hands every player a sentence to draw. Authors get the
// deranged sentence at their own author position, so nobody draws their own
// prompt; everyone else cycles through the deranged list.
func assignSentences(players []Player, rng *rand.Rand) {
	authored := make([]Authored, 0, len(players))
	for _, p := range players {
		if hasSentence(p) {
			authored = append(authored, Authored{Sentence: p.Sentence, AuthorID: p.ID})
		}
	}
	if len(authored) == 0 {
		for i := range players {
			players[i].AssignedSentence = ""
		}
		return
	}

	deranged := Derange(authored, rng)
	author, other := 0, 0
	for i := range players {
		if hasSentence(players[i]) {
			players[i].AssignedSentence = deranged[author].Sentence
			author++
			continue
		}
		players[i].AssignedSentence = deranged[other%len(deranged)].Sentence
		other++
	}
}
