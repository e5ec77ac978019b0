// internal/room/board_test.go
package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharTargetGridCorners(t *testing.T) {
	// 'A' is top-left of the grid band, 'I' ends the first row.
	a, ok := CharTarget('A')
	require.True(t, ok)
	assert.InDelta(t, 0.1, a.X, 1e-9)
	assert.InDelta(t, 0.3, a.Y, 1e-9)

	i, ok := CharTarget('I')
	require.True(t, ok)
	assert.InDelta(t, 0.9, i.X, 1e-9)
	assert.InDelta(t, 0.3, i.Y, 1e-9)

	// '0' closes the last row.
	zero, ok := CharTarget('0')
	require.True(t, ok)
	assert.InDelta(t, 0.9, zero.X, 1e-9)
	assert.InDelta(t, 0.7, zero.Y, 1e-9)
}

func TestCharTargetOffBoard(t *testing.T) {
	for _, ch := range []rune{' ', '?', 'a', '-'} {
		_, ok := CharTarget(ch)
		assert.False(t, ok, "expected %q off the board", ch)
	}
}

func TestTargetForCursorPositions(t *testing.T) {
	msg := "GO 2"

	// Before the reveal starts and past the end, the planchette rests.
	assert.Equal(t, RestPosition, TargetFor(msg, 0))
	assert.Equal(t, RestPosition, TargetFor(msg, len(msg)+1))

	// Cursor 1 points at 'G'.
	g, _ := CharTarget('G')
	assert.Equal(t, g, TargetFor(msg, 1))

	// The space at cursor 3 parks at rest.
	assert.Equal(t, RestPosition, TargetFor(msg, 3))

	two, _ := CharTarget('2')
	assert.Equal(t, two, TargetFor(msg, 4))
}

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(-0.5))
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.Equal(t, 1.0, EaseOutCubic(2))

	// Eased progress leads linear progress mid-glide.
	assert.Greater(t, EaseOutCubic(0.5), 0.5)
}

func TestGlidePath(t *testing.T) {
	from, _ := CharTarget('A')
	to, _ := CharTarget('I')

	path := GlidePath(from, to, 8)
	require.Len(t, path, 8)
	assert.Equal(t, from, path[0])
	assert.Equal(t, to, path[len(path)-1])

	// Eased drift: fast early, settling late.
	firstHop := path[1].X - path[0].X
	lastHop := path[len(path)-1].X - path[len(path)-2].X
	assert.Greater(t, firstHop, lastHop)

	// A degenerate step count still yields both endpoints.
	short := GlidePath(from, to, 1)
	require.Len(t, short, 2)
	assert.Equal(t, from, short[0])
	assert.Equal(t, to, short[1])
}

func TestGlideEndpoints(t *testing.T) {
	from := Point{X: 0.1, Y: 0.2}
	to := Point{X: 0.9, Y: 0.6}

	assert.Equal(t, from, Glide(from, to, 0))
	assert.Equal(t, to, Glide(from, to, 1))

	mid := Glide(from, to, 0.5)
	assert.Greater(t, mid.X, from.X)
	assert.Less(t, mid.X, to.X)
}
