package reinforcement

import "gamelearn/models"

// Environment is a deterministic finite-state simulator. Step rejects actions
// outside ValidActions of the current state with an error.
type Environment[S, A comparable] interface {
	Reset() S
	ValidActions(state S) []A
	Step(action A) (next S, reward float64, terminal bool, err error)
}

// TwoPlayerEnvironment adds turn-taking and a final outcome, which is only
// meaningful once Step has reported a terminal transition.
type TwoPlayerEnvironment[S, A comparable] interface {
	Environment[S, A]
	Turn() models.Player
	Outcome() models.Outcome
}

var (
	_ TwoPlayerEnvironment[models.BoardState, int] = &models.Board{}
	_ Environment[models.Position, models.Direction] = &models.Maze{}
)

// BoardActions is the board game's action set: the empty cells of a state.
func BoardActions(state models.BoardState) []int {
	return models.EmptyCells(state)
}

// MazeActions is the maze's action set, which does not depend on the state.
func MazeActions(models.Position) []models.Direction {
	return models.Directions
}

// NewBoardAgent returns a board-game agent named for its mark, e.g. "agent_x".
func NewBoardAgent(name string, params Hyperparameters, seed uint64) *Agent[models.BoardState, int] {
	return NewAgent[models.BoardState, int](name, params, BoardActions, seed)
}

// NewMazeAgent returns a maze agent.
func NewMazeAgent(name string, params Hyperparameters, seed uint64) *Agent[models.Position, models.Direction] {
	return NewAgent[models.Position, models.Direction](name, params, MazeActions, seed)
}
