// internal/room/responses_test.go
package room

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickResponseNeverRepeatsPrevious(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prev := SpiritResponses[0]
	for i := 0; i < 500; i++ {
		resp, farewell := pickResponse(rng, prev, 0)
		require.False(t, farewell)
		require.NotEqual(t, Farewell, resp)
		require.NotEqual(t, prev, resp)
		prev = resp
	}
}

func TestPickResponseFarewellOdds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// 0 percent never says goodbye.
	for i := 0; i < 200; i++ {
		_, farewell := pickResponse(rng, "", 0)
		require.False(t, farewell)
	}

	// 100 percent always does.
	resp, farewell := pickResponse(rng, "", 100)
	require.True(t, farewell)
	require.Equal(t, Farewell, resp)
}

func TestPickResponseFarewellRate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hits := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		if _, farewell := pickResponse(rng, "", 10); farewell {
			hits++
		}
	}
	// 10 percent odds over 2000 trials; allow a wide band.
	assert.Greater(t, hits, trials/20)
	assert.Less(t, hits, trials/5)
}

func TestVocabularySpellsOnTheBoard(t *testing.T) {
	for _, resp := range SpiritResponses {
		for i, ch := range []rune(resp) {
			p := TargetFor(resp, i+1)
			if _, onBoard := CharTarget(ch); onBoard {
				assert.NotEqual(t, RestPosition, p, "response %q char %q should glide to the grid", resp, ch)
			} else {
				// Spaces and punctuation park the planchette at rest.
				assert.Equal(t, RestPosition, p, "response %q char %q should park at rest", resp, ch)
			}
		}
	}
}
