package service

import (
	"testing"

	"github.com/prepexam/prepexam-backend/internal/model"
)

func TestRankFor(t *testing.T) {
	cases := []struct {
		points int
		want   model.RankTier
	}{
		{0, model.RankBeginner},
		{49, model.RankBeginner},
		{50, model.RankIntermediate},
		{199, model.RankIntermediate},
		{200, model.RankAdvanced},
		{499, model.RankAdvanced},
		{500, model.RankExpert},
		{999, model.RankExpert},
		{1000, model.RankMaster},
		{100000, model.RankMaster},
	}

	for _, tc := range cases {
		if got := model.RankFor(tc.points); got != tc.want {
			t.Errorf("RankFor(%d) = %s, want %s", tc.points, got, tc.want)
		}
	}
}

func TestEligibleBadgeNames(t *testing.T) {
	has := func(names []string, want string) bool {
		for _, n := range names {
			if n == want {
				return true
			}
		}
		return false
	}

	t.Run("high accuracy earns High Achiever", func(t *testing.T) {
		names := EligibleBadgeNames(model.Score{Correct: 4, Total: 5, Accuracy: 80}, 1)
		if !has(names, model.BadgeHighAchiever) {
			t.Errorf("80%% accuracy missing %s: %v", model.BadgeHighAchiever, names)
		}
		if has(names, model.BadgePerfectScore) {
			t.Errorf("imperfect score earned %s: %v", model.BadgePerfectScore, names)
		}
	})

	t.Run("below threshold earns nothing", func(t *testing.T) {
		names := EligibleBadgeNames(model.Score{Correct: 3, Total: 5, Accuracy: 60}, 1)
		if len(names) != 0 {
			t.Errorf("60%% accuracy on first submission earned %v", names)
		}
	})

	t.Run("perfect score earns both accuracy badges", func(t *testing.T) {
		names := EligibleBadgeNames(model.Score{Correct: 5, Total: 5, Accuracy: 100}, 1)
		if !has(names, model.BadgePerfectScore) || !has(names, model.BadgeHighAchiever) {
			t.Errorf("perfect score earned %v", names)
		}
	})

	t.Run("empty test never counts as perfect", func(t *testing.T) {
		names := EligibleBadgeNames(model.Score{Correct: 0, Total: 0, Accuracy: 0}, 1)
		if has(names, model.BadgePerfectScore) {
			t.Errorf("zero-question test earned %s", model.BadgePerfectScore)
		}
	})

	t.Run("fifth submission earns Dedicated Learner", func(t *testing.T) {
		if names := EligibleBadgeNames(model.Score{Total: 5}, 4); has(names, model.BadgeDedicatedLearner) {
			t.Errorf("4 submissions earned %s", model.BadgeDedicatedLearner)
		}
		if names := EligibleBadgeNames(model.Score{Total: 5}, 5); !has(names, model.BadgeDedicatedLearner) {
			t.Errorf("5 submissions missing %s", model.BadgeDedicatedLearner)
		}
	})
}
