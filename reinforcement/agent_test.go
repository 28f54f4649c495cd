package reinforcement

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func fixedActions(actions ...int) ActionSet[string, int] {
	return func(string) []int { return actions }
}

func TestChooseAction(t *testing.T) {
	Convey("Given an agent", t, func() {
		params := DefaultHyperparameters()
		agent := NewAgent[string, int]("test", params, fixedActions(), 7)

		Convey("Asking to act without valid actions is an error", func() {
			_, err := agent.ChooseAction("s", nil, true)
			So(errors.Is(err, ErrNoValidActions), ShouldBeTrue)
		})

		Convey("Full exploration still only picks valid actions", func() {
			agent.SetEpsilon(1)
			valid := []int{1, 5, 6}
			for i := 0; i < 500; i++ {
				action, err := agent.ChooseAction("s", valid, true)
				So(err, ShouldBeNil)
				So(action, ShouldBeIn, valid)
			}
		})

		Convey("Without exploration the best action is chosen", func() {
			agent.SetEpsilon(0)
			agent.Table().Set("s", 2, 0.5)
			agent.Table().Set("s", 3, 0.1)
			agent.Table().Set("s", 4, 0.9)
			valid := []int{2, 3, 4, 5, 6, 7, 8}
			for i := 0; i < 50; i++ {
				action, err := agent.ChooseAction("s", valid, true)
				So(err, ShouldBeNil)
				So(action, ShouldEqual, 4)
			}
		})

		Convey("Outside training epsilon is ignored", func() {
			agent.SetEpsilon(1)
			agent.Table().Set("s", 6, 0.2)
			for i := 0; i < 50; i++ {
				action, err := agent.ChooseAction("s", []int{5, 6, 7}, false)
				So(err, ShouldBeNil)
				So(action, ShouldEqual, 6)
			}
		})

		Convey("Ties are broken uniformly", func() {
			agent.SetEpsilon(0)
			valid := []int{0, 1, 2, 3}
			counts := map[int]int{}
			for i := 0; i < 4000; i++ {
				action, _ := agent.ChooseAction("unseen", valid, true)
				counts[action]++
			}
			for _, a := range valid {
				So(counts[a], ShouldBeGreaterThan, 800)
			}
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given an agent with alpha 0.5 and gamma 0.9", t, func() {
		params := Hyperparameters{Alpha: 0.5, Gamma: 0.9, Epsilon: 1, EpsilonMin: 0.01, EpsilonDecay: 0.99}
		agent := NewAgent[string, int]("test", params, fixedActions(0, 1, 2), 1)
		agent.Table().Set("next", 0, 0.5)
		agent.Table().Set("next", 1, 0.8)
		agent.Table().Set("next", 2, 0.3)

		Convey("A step bootstraps from the best successor value", func() {
			agent.Update("s", 0, 0, "next", false)
			So(agent.Table().Get("s", 0), ShouldAlmostEqual, 0.36, 1e-9)
		})

		Convey("A terminal step ignores the successor", func() {
			agent.Update("s", 0, 1, "next", true)
			So(agent.Table().Get("s", 0), ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Updates move from the old value toward the target", func() {
			agent.Table().Set("s", 1, 1)
			agent.Update("s", 1, 0, "next", true)
			So(agent.Table().Get("s", 1), ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestLearnFromEpisode(t *testing.T) {
	Convey("Given an agent that learns at rate one", t, func() {
		params := Hyperparameters{Alpha: 1, Gamma: 0.9, Epsilon: 1, EpsilonMin: 0.1, EpsilonDecay: 0.5}
		agent := NewAgent[string, int]("test", params, fixedActions(), 1)
		agent.Remember("s0", 0)
		agent.Remember("s1", 1)
		agent.Remember("s2", 2)

		Convey("The final reward is discounted backwards through the trajectory", func() {
			agent.LearnFromEpisode(1)
			So(agent.Table().Get("s2", 2), ShouldAlmostEqual, 1.0, 1e-9)
			So(agent.Table().Get("s1", 1), ShouldAlmostEqual, 0.9, 1e-9)
			So(agent.Table().Get("s0", 0), ShouldAlmostEqual, 0.81, 1e-9)
		})

		Convey("Epsilon decays exactly once per episode", func() {
			agent.LearnFromEpisode(1)
			So(agent.Epsilon(), ShouldAlmostEqual, 0.5, 1e-9)
			agent.ResetEpisode()
			agent.LearnFromEpisode(0)
			So(agent.Epsilon(), ShouldAlmostEqual, 0.25, 1e-9)
			agent.LearnFromEpisode(0)
			agent.LearnFromEpisode(0)
			So(agent.Epsilon(), ShouldAlmostEqual, 0.1, 1e-9)
		})

		Convey("ResetEpisode clears the trajectory", func() {
			So(agent.Trajectory(), ShouldHaveLength, 3)
			agent.ResetEpisode()
			So(agent.Trajectory(), ShouldBeEmpty)
		})
	})

	Convey("Given a trajectory that repeats a move", t, func() {
		params := Hyperparameters{Alpha: 0.5, Gamma: 0.9, Epsilon: 1, EpsilonMin: 0.1, EpsilonDecay: 0.5}
		agent := NewAgent[string, int]("test", params, fixedActions(), 1)
		agent.Remember("s", 0)
		agent.Remember("s", 0)

		Convey("The newest occurrence is updated first", func() {
			agent.LearnFromEpisode(1)
			// 0 -> 0.5 from the last move, then 0.5 + 0.5*(0.9-0.5) from the first.
			So(agent.Table().Get("s", 0), ShouldAlmostEqual, 0.7, 1e-9)
		})
	})

	Convey("Results are counted by the sign of the final reward", t, func() {
		agent := NewAgent[string, int]("test", DefaultHyperparameters(), fixedActions(), 1)
		for _, r := range []float64{1, -1, 0, 1} {
			agent.RecordResult(r)
		}
		So(agent.Record(), ShouldResemble, Record{Episodes: 4, Wins: 2, Losses: 1, Draws: 1})
	})
}
