package models

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBoard(t *testing.T) {
	Convey("When a board is created", t, func() {
		Convey("Sizes outside 3..9 are rejected", func() {
			_, err := NewBoard(2, 1)
			So(errors.Is(err, ErrBoardSize), ShouldBeTrue)
			_, err = NewBoard(10, 1)
			So(errors.Is(err, ErrBoardSize), ShouldBeTrue)
		})

		Convey("It starts empty with every cell playable", func() {
			board, err := NewBoard(4, 7)
			So(err, ShouldBeNil)
			So(board.State(), ShouldEqual, BoardState("................"))
			So(len(board.ValidActions(board.State())), ShouldEqual, 16)
			So(board.Turn(), ShouldNotEqual, NoPlayer)
			So(board.Finished(), ShouldBeFalse)
		})

		Convey("Both players get to start over many resets", func() {
			board, _ := NewBoard(3, 11)
			starts := map[Player]int{}
			for i := 0; i < 200; i++ {
				board.Reset()
				starts[board.Turn()]++
			}
			So(starts[PlayerX], ShouldBeGreaterThan, 0)
			So(starts[PlayerO], ShouldBeGreaterThan, 0)
		})
	})

	Convey("When moves are played", t, func() {
		board, _ := NewBoard(3, 1)
		board.ResetWith(PlayerX)

		Convey("Turns alternate and the state is a fresh snapshot", func() {
			before := board.State()
			state, reward, done, err := board.Step(4)
			So(err, ShouldBeNil)
			So(reward, ShouldEqual, 0.0)
			So(done, ShouldBeFalse)
			So(state, ShouldEqual, BoardState("....X...."))
			So(before, ShouldEqual, BoardState("........."))
			So(board.Turn(), ShouldEqual, PlayerO)
			So(board.ValidActions(state), ShouldResemble, []int{0, 1, 2, 3, 5, 6, 7, 8})
		})

		Convey("Taken and off-board cells are illegal", func() {
			_, _, _, err := board.Step(0)
			So(err, ShouldBeNil)
			_, _, _, err = board.Step(0)
			So(errors.Is(err, ErrIllegalMove), ShouldBeTrue)
			_, _, _, err = board.Step(9)
			So(errors.Is(err, ErrIllegalMove), ShouldBeTrue)
			So(board.Turn(), ShouldEqual, PlayerO)
		})

		Convey("Completing the anti-diagonal wins", func() {
			// X: 2, 4, 6  O: 0, 1
			for _, cell := range []int{2, 0, 4, 1} {
				_, _, _, err := board.Step(cell)
				So(err, ShouldBeNil)
			}
			_, reward, done, err := board.Step(6)
			So(err, ShouldBeNil)
			So(reward, ShouldEqual, WinReward)
			So(done, ShouldBeTrue)
			So(board.Outcome(), ShouldEqual, XWins)

			_, _, _, err = board.Step(8)
			So(errors.Is(err, ErrGameOver), ShouldBeTrue)
		})

		Convey("O wins with a column", func() {
			board.ResetWith(PlayerO)
			for _, cell := range []int{1, 0, 4, 2} {
				_, _, _, err := board.Step(cell)
				So(err, ShouldBeNil)
			}
			_, reward, done, _ := board.Step(7)
			So(reward, ShouldEqual, WinReward)
			So(done, ShouldBeTrue)
			So(board.Outcome(), ShouldEqual, OWins)
		})

		Convey("A full board without a line is a draw", func() {
			// X O X / X O O / O X X
			for _, cell := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
				_, reward, _, err := board.Step(cell)
				So(err, ShouldBeNil)
				So(reward, ShouldEqual, 0.0)
			}
			So(board.Finished(), ShouldBeTrue)
			So(board.Outcome(), ShouldEqual, Draw)
		})
	})

	Convey("Winning lines cover rows, columns and both diagonals", t, func() {
		lines := winningLines(4)
		So(len(lines), ShouldEqual, 10)
		So(lines[0], ShouldResemble, []int{0, 1, 2, 3})
		So(lines[4], ShouldResemble, []int{0, 4, 8, 12})
		So(lines[8], ShouldResemble, []int{0, 5, 10, 15})
		So(lines[9], ShouldResemble, []int{3, 6, 9, 12})
	})
}
