// internal/room/board.go
package room

import "strings"

// BoardCharacters is the fixed on-screen layout the planchette glides over:
// four rows of nine glyphs across the middle band of the board.
const BoardCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

const boardColumns = 9

// revealPathSteps is how many waypoints a reveal broadcast's glide carries.
const revealPathSteps = 8

// Point is a normalized board coordinate; (0,0) is the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fixed anchor positions outside the character grid.
var (
	YesPosition  = Point{X: 0.12, Y: 0.12}
	NoPosition   = Point{X: 0.88, Y: 0.12}
	RestPosition = Point{X: 0.5, Y: 0.88} // over the GOODBYE arc
)

// CharTarget returns the board position of a single glyph. The bool is false
// for glyphs not on the board (spaces, punctuation).
func CharTarget(ch rune) (Point, bool) {
	idx := strings.IndexRune(BoardCharacters, ch)
	if idx < 0 {
		return Point{}, false
	}
	row := idx / boardColumns
	col := idx % boardColumns
	return Point{
		X: 0.1 + 0.8*float64(col)/float64(boardColumns-1),
		Y: 0.3 + 0.4*float64(row)/3.0,
	}, true
}

// TargetFor computes where the planchette should glide for the reveal cursor
// sitting at index within message. The character *behind* the cursor is the
// one just revealed. Off-board glyphs and an out-of-range index park the
// planchette at the rest position.
func TargetFor(message string, index int) Point {
	runes := []rune(message)
	if index <= 0 || index > len(runes) {
		return RestPosition
	}
	if p, ok := CharTarget(runes[index-1]); ok {
		return p
	}
	return RestPosition
}

// EaseOutCubic maps linear animation progress t in [0,1] onto a curve that
// starts fast and settles gently, which is how a planchette appears to drift.
func EaseOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u*u
}

// Glide interpolates the planchette between two points with eased progress.
func Glide(from, to Point, t float64) Point {
	e := EaseOutCubic(t)
	return Point{
		X: from.X + (to.X-from.X)*e,
		Y: from.Y + (to.Y-from.Y)*e,
	}
}

// GlidePath samples the eased trajectory between two points, endpoints
// included. Reveal broadcasts carry this so every client animates the same
// drift.
func GlidePath(from, to Point, steps int) []Point {
	if steps < 2 {
		steps = 2
	}
	path := make([]Point, steps)
	for i := 0; i < steps; i++ {
		path[i] = Glide(from, to, float64(i)/float64(steps-1))
	}
	return path
}
