package models

import (
	"errors"
	"fmt"
)

// Position is a (row, column) cell of the maze; row 0 is the top line of the layout.
type Position struct {
	Row, Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Direction is a maze action.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions is the fixed maze action set.
var Directions = []Direction{Up, Down, Left, Right}

const (
	// Maze cell types
	WallCell = '#'
	PathCell = ' '

	// Rewards. Reaching the goal pays GoalRewardPerCell for every cell of the
	// layout, so larger mazes keep the goal worth the longer walk.
	StepReward        = -0.1
	GoalRewardPerCell = 10.0
)

var (
	ErrUnknownDirection = errors.New("unknown direction")
	ErrBadLayout        = errors.New("malformed maze layout")
)

// Fixed layouts for development and for the default maze run. Walls are '#'.
var (
	DebugMaze []string = []string{
		"#######",
		"#     #",
		"# ### #",
		"#   # #",
		"### # #",
		"#     #",
		"#######",
	}

	FullMaze []string = []string{
		"###########",
		"#   #     #",
		"# # # ### #",
		"# #   #   #",
		"# ##### # #",
		"#     # # #",
		"##### # # #",
		"#   #   # #",
		"# # ##### #",
		"# #       #",
		"###########",
	}
)

// Maze is a deterministic grid walk from a start cell to a goal cell. Moves
// into a wall or off the grid leave the agent where it is, but still cost a step.
type Maze struct {
	grid       [][]rune
	rows, cols int
	start      Position
	goal       Position
	pos        Position
}

// NewMaze builds a maze from @layout; start and goal must be open cells.
func NewMaze(layout []string, start, goal Position) (*Maze, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadLayout)
	}

	cols := len([]rune(layout[0]))
	grid := make([][]rune, 0, len(layout))
	for i, line := range layout {
		row := []rune(line)
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrBadLayout, i, len(row), cols)
		}
		grid = append(grid, row)
	}

	m := &Maze{
		grid:  grid,
		rows:  len(grid),
		cols:  cols,
		start: start,
		goal:  goal,
	}
	if !m.open(start) {
		return nil, fmt.Errorf("%w: start %v is not an open cell", ErrBadLayout, start)
	}
	if !m.open(goal) {
		return nil, fmt.Errorf("%w: goal %v is not an open cell", ErrBadLayout, goal)
	}
	m.Reset()
	return m, nil
}

// NewDefaultMaze builds @layout with the start in the top-left open corner
// and the goal in the bottom-right one, as the fixed layouts are drawn.
func NewDefaultMaze(layout []string) (*Maze, error) {
	if len(layout) < 3 || len(layout[0]) < 3 {
		return nil, fmt.Errorf("%w: layout needs a wall border around at least one cell", ErrBadLayout)
	}
	goal := Position{Row: len(layout) - 2, Col: len([]rune(layout[0])) - 2}
	return NewMaze(layout, Position{Row: 1, Col: 1}, goal)
}

func (m *Maze) Rows() int          { return m.rows }
func (m *Maze) Cols() int          { return m.cols }
func (m *Maze) Start() Position    { return m.start }
func (m *Maze) Goal() Position     { return m.goal }
func (m *Maze) Position() Position { return m.pos }

// GoalReward is the reward paid on reaching the goal.
func (m *Maze) GoalReward() float64 {
	return GoalRewardPerCell * float64(m.rows*m.cols)
}

// Reset returns the agent to the start cell.
func (m *Maze) Reset() Position {
	m.pos = m.start
	return m.pos
}

// ValidActions is the full direction set; every direction is legal everywhere.
func (m *Maze) ValidActions(Position) []Direction {
	actions := make([]Direction, len(Directions))
	copy(actions, Directions)
	return actions
}

// Step moves the agent one cell in @dir.
func (m *Maze) Step(dir Direction) (Position, float64, bool, error) {
	next, err := m.neighbor(m.pos, dir)
	if err != nil {
		return m.pos, 0, false, err
	}
	if m.open(next) {
		m.pos = next
	}

	if m.pos == m.goal {
		return m.pos, m.GoalReward(), true, nil
	}
	return m.pos, StepReward, false, nil
}

func (m *Maze) neighbor(p Position, dir Direction) (Position, error) {
	switch dir {
	case Up:
		return Position{Row: p.Row - 1, Col: p.Col}, nil
	case Down:
		return Position{Row: p.Row + 1, Col: p.Col}, nil
	case Left:
		return Position{Row: p.Row, Col: p.Col - 1}, nil
	case Right:
		return Position{Row: p.Row, Col: p.Col + 1}, nil
	}
	return p, fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
}

func (m *Maze) open(p Position) bool {
	if p.Row < 0 || p.Row >= m.rows || p.Col < 0 || p.Col >= m.cols {
		return false
	}
	return m.grid[p.Row][p.Col] != WallCell
}
