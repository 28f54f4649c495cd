package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/rand"
)

// Player identifies whose turn it is on the board.
type Player int

const (
	NoPlayer Player = iota
	PlayerX
	PlayerO
)

func (p Player) String() string {
	switch p {
	case PlayerX:
		return "X"
	case PlayerO:
		return "O"
	default:
		return "-"
	}
}

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// Outcome is the result of a finished game. It is Undecided while the game is running.
type Outcome int

const (
	Undecided Outcome = iota
	XWins
	OWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "X wins"
	case OWins:
		return "O wins"
	case Draw:
		return "draw"
	default:
		return "undecided"
	}
}

// BoardState is a row-major snapshot of the board, one marker per cell.
// Being a string, it is immutable, comparable and gob friendly, so it serves
// directly as a Q-table key.
type BoardState string

// Cell markers and board bounds.
const (
	EmptyCell = '.'
	MarkX     = 'X'
	MarkO     = 'O'

	MinBoardSize = 3
	MaxBoardSize = 9

	// WinReward is the reward for the move that completes a line.
	WinReward = 1.0
)

var (
	ErrBoardSize   = errors.New("board size out of range")
	ErrIllegalMove = errors.New("illegal move")
	ErrGameOver    = errors.New("game is already over")
)

// Board is an N×N tic-tac-toe game. A line is any full row, column or one of the
// two main diagonals. The starting player is drawn at random on every Reset.
type Board struct {
	size     int
	cells    []byte
	lines    [][]int
	turn     Player
	finished bool
	outcome  Outcome
	rng      *rand.Rand
}

// NewBoard returns a board of the given size, reset and ready to play.
// A zero seed seeds the starting-player draw from the clock.
func NewBoard(size int, seed uint64) (*Board, error) {
	if size < MinBoardSize || size > MaxBoardSize {
		return nil, fmt.Errorf("%w: %d (must be %d..%d)", ErrBoardSize, size, MinBoardSize, MaxBoardSize)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	b := &Board{
		size:  size,
		cells: make([]byte, size*size),
		lines: winningLines(size),
		rng:   rand.New(rand.NewSource(seed)),
	}
	b.Reset()
	return b, nil
}

func winningLines(size int) (lines [][]int) {
	n := size * size
	for start := 0; start < n; start += size {
		row := make([]int, 0, size)
		for i := start; i < start+size; i++ {
			row = append(row, i)
		}
		lines = append(lines, row)
	}
	for col := 0; col < size; col++ {
		column := make([]int, 0, size)
		for i := col; i < n; i += size {
			column = append(column, i)
		}
		lines = append(lines, column)
	}
	diag := make([]int, 0, size)
	anti := make([]int, 0, size)
	for i := 0; i < size; i++ {
		diag = append(diag, i*(size+1))
		anti = append(anti, (i+1)*(size-1))
	}
	return append(lines, diag, anti)
}

// Reset clears the board and draws the starting player.
func (b *Board) Reset() BoardState {
	first := PlayerX
	if b.rng.Intn(2) == 1 {
		first = PlayerO
	}
	return b.ResetWith(first)
}

// ResetWith clears the board and lets @first move first.
func (b *Board) ResetWith(first Player) BoardState {
	for i := range b.cells {
		b.cells[i] = EmptyCell
	}
	b.turn = first
	b.finished = false
	b.outcome = Undecided
	return b.State()
}

func (b *Board) Size() int         { return b.size }
func (b *Board) Turn() Player      { return b.turn }
func (b *Board) Finished() bool    { return b.finished }
func (b *Board) Outcome() Outcome  { return b.outcome }
func (b *Board) State() BoardState { return BoardState(b.cells) }

// ValidActions returns the indices of the empty cells of @state.
func (b *Board) ValidActions(state BoardState) []int {
	return EmptyCells(state)
}

// EmptyCells returns the indices of the unmarked cells of @state.
func EmptyCells(state BoardState) []int {
	cells := make([]int, 0, len(state))
	for i := 0; i < len(state); i++ {
		if state[i] == EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

// Step places the current player's mark on @cell. The reward is WinReward
// when the move completes a line and zero otherwise; the turn passes to the
// opponent after every legal move.
func (b *Board) Step(cell int) (BoardState, float64, bool, error) {
	if b.finished {
		return b.State(), 0, true, fmt.Errorf("%w: %s", ErrGameOver, b.outcome)
	}
	if cell < 0 || cell >= len(b.cells) {
		return b.State(), 0, false, fmt.Errorf("%w: cell %d is off the board", ErrIllegalMove, cell)
	}
	if b.cells[cell] != EmptyCell {
		return b.State(), 0, false, fmt.Errorf("%w: cell %d is taken by %c", ErrIllegalMove, cell, b.cells[cell])
	}

	mark := byte(MarkX)
	if b.turn == PlayerO {
		mark = MarkO
	}
	b.cells[cell] = mark

	reward := 0.0
	if b.completesLine(mark) {
		b.finished = true
		b.outcome = XWins
		if b.turn == PlayerO {
			b.outcome = OWins
		}
		reward = WinReward
	} else if !strings.ContainsRune(string(b.cells), EmptyCell) {
		b.finished = true
		b.outcome = Draw
	}

	b.turn = b.turn.Opponent()
	return b.State(), reward, b.finished, nil
}

func (b *Board) completesLine(mark byte) bool {
	for _, line := range b.lines {
		full := true
		for _, i := range line {
			if b.cells[i] != mark {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return false
}
