package engine

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// PuzzleKind selects how a task puzzle is generated.
type PuzzleKind string

const (
	PuzzleGrid     PuzzleKind = "grid"
	PuzzleSegments PuzzleKind = "segments"
	PuzzleMissing  PuzzleKind = "missing"
)

const (
	gridSide        = 4
	gridSymbols     = "ABCDEFGH"
	segmentCount    = 4
	segmentLength   = 2
	missingRangeMax = 12
)

// Segment is one labelled piece of a sequence.
type Segment struct {
	Index  int    `json:"index"`
	Digits string `json:"digits"`
}

// PuzzleView is what one participant sees.
type PuzzleView struct {
	Cells    []string  `json:"cells,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Numbers  []int     `json:"numbers,omitempty"`
}

// Puzzle is a generated task puzzle. The answer stays server side.
type Puzzle struct {
	Kind   PuzzleKind         `json:"kind"`
	Views  map[int]PuzzleView `json:"views"`
	Answer string             `json:"-"`
}

// Check reports whether answer solves the puzzle.
func (p *Puzzle) Check(answer string) bool {
	return strings.TrimSpace(answer) == p.Answer
}

// newGridPuzzle gives every participant a grid in which exactly one cell
// carries the same symbol for everyone. The answer is that cell's index.
func newGridPuzzle(rng *rand.Rand, seats []int) *Puzzle {
	cells := gridSide * gridSide
	target := rng.IntN(cells)
	common := string(gridSymbols[rng.IntN(len(gridSymbols))])

	views := make(map[int]PuzzleView, len(seats))
	grids := make([][]string, len(seats))
	for i := range seats {
		grids[i] = make([]string, cells)
		for c := range cells {
			grids[i][c] = string(gridSymbols[rng.IntN(len(gridSymbols))])
		}
		grids[i][target] = common
	}

	// every other cell must differ for at least one participant
	for c := range cells {
		if c == target || len(grids) < 2 {
			continue
		}
		same := true
		for i := 1; i < len(grids); i++ {
			if grids[i][c] != grids[0][c] {
				same = false
				break
			}
		}
		if same {
			last := grids[len(grids)-1]
			idx := strings.IndexByte(gridSymbols, last[c][0])
			last[c] = string(gridSymbols[(idx+1+rng.IntN(len(gridSymbols)-1))%len(gridSymbols)])
		}
	}

	for i, seat := range seats {
		views[seat] = PuzzleView{Cells: grids[i]}
	}
	return &Puzzle{Kind: PuzzleGrid, Views: views, Answer: strconv.Itoa(target)}
}

// newSegmentPuzzle splits a digit sequence into labelled segments dealt
// across participants; each must submit the reassembled sequence.
func newSegmentPuzzle(rng *rand.Rand, seats []int) *Puzzle {
	var b strings.Builder
	for range segmentCount * segmentLength {
		b.WriteByte(byte('0' + rng.IntN(10)))
	}
	answer := b.String()

	segments := make([]Segment, segmentCount)
	for i := range segmentCount {
		segments[i] = Segment{Index: i, Digits: answer[i*segmentLength : (i+1)*segmentLength]}
	}
	shuffle(rng, segments)

	views := make(map[int]PuzzleView, len(seats))
	for i, seg := range segments {
		seat := seats[i%len(seats)]
		v := views[seat]
		v.Segments = append(v.Segments, seg)
		views[seat] = v
	}
	for _, seat := range seats {
		if _, ok := views[seat]; !ok {
			views[seat] = PuzzleView{}
		}
	}
	return &Puzzle{Kind: PuzzleSegments, Views: views, Answer: answer}
}

// newMissingPuzzle shows 1..N with one number removed. Everyone sees the
// same list; the answer is the missing number.
func newMissingPuzzle(rng *rand.Rand, seats []int) *Puzzle {
	missing := 1 + rng.IntN(missingRangeMax)
	numbers := make([]int, 0, missingRangeMax-1)
	for n := 1; n <= missingRangeMax; n++ {
		if n != missing {
			numbers = append(numbers, n)
		}
	}
	shuffle(rng, numbers)

	views := make(map[int]PuzzleView, len(seats))
	for _, seat := range seats {
		views[seat] = PuzzleView{Numbers: numbers}
	}
	return &Puzzle{Kind: PuzzleMissing, Views: views, Answer: strconv.Itoa(missing)}
}

func (p *Puzzle) clone() *Puzzle {
	if p == nil {
		return nil
	}
	c := *p
	c.Views = make(map[int]PuzzleView, len(p.Views))
	for seat, v := range p.Views {
		c.Views[seat] = v
	}
	return &c
}
