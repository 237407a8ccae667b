package model

import "time"

// RankTier is a named band derived purely from cumulative points.
type RankTier string

const (
	RankBeginner     RankTier = "Beginner"
	RankIntermediate RankTier = "Intermediate"
	RankAdvanced     RankTier = "Advanced"
	RankExpert       RankTier = "Expert"
	RankMaster       RankTier = "Master"
)

// RankFor maps cumulative points to a rank tier. Bands are inclusive at the
// lower bound: 0–49 Beginner, 50–199 Intermediate, 200–499 Advanced,
// 500–999 Expert, 1000+ Master.
func RankFor(points int) RankTier {
	switch {
	case points < 50:
		return RankBeginner
	case points < 200:
		return RankIntermediate
	case points < 500:
		return RankAdvanced
	case points < 1000:
		return RankExpert
	default:
		return RankMaster
	}
}

// UserProgress tracks a user's cumulative points. Points never decrease.
type UserProgress struct {
	UserID    int       `json:"user_id"`
	Points    int       `json:"points"`
	Rank      RankTier  `json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Badge is a write-once achievement record. A user holds at most one badge
// per name.
type Badge struct {
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earned_at"`
}

// Badge names awarded by the progression engine.
const (
	BadgeHighAchiever     = "High Achiever"
	BadgePerfectScore     = "Perfect Score"
	BadgeDedicatedLearner = "Dedicated Learner"
)
