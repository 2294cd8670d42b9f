// Package skills is the pure bonus calculator shared by the production,
// trade and reward engines. All rate tables are passed in by the caller so
// the math stays deterministic under test.
package skills

import "math"

// Skill ids.
const (
	Crafting          = "Crafting"
	HideoutManagement = "HideoutManagement"
)

// Progress is stored as level*100. 5100 is level 51 (elite), the hard cap.
const (
	MaxProgress   = 5100
	EliteProgress = 5100
)

// Skill is one skill progress record in a profile.
type Skill struct {
	ID                        string  `json:"id"`
	Progress                  float64 `json:"progress"`
	PointsEarnedDuringSession float64 `json:"points_earned_during_session,omitempty"`
	LastAccess                int64   `json:"last_access,omitempty"`
}

// BonusMultiplier converts skill progress plus a per-level rate into a
// fractional multiplier. Level 51 is deliberately rounded down to 50: elite
// must not grant an increment past level 50's bonus. Missing or zero
// progress yields 0.
func BonusMultiplier(progress, amountPerLevel float64) float64 {
	if progress <= 0 {
		return 0
	}
	level := math.Floor(progress / 100)
	if level > 50 {
		level = 50
	}
	return level * amountPerLevel / 100
}

// TimeReduction returns the seconds to shave off a craft given its base
// production time and the skill's per-level rate.
func TimeReduction(progress, productionTime, amountPerLevel float64) float64 {
	return productionTime * BonusMultiplier(progress, amountPerLevel)
}

// Add credits points to a skill, refusing negative awards and capping
// progress at level 51. Returns false when the award was rejected.
func Add(s *Skill, points float64, now int64) bool {
	if s == nil || points < 0 {
		return false
	}
	s.Progress = math.Min(s.Progress+points, MaxProgress)
	s.PointsEarnedDuringSession += points
	s.LastAccess = now
	return true
}

// IsElite reports whether the skill reached level 51.
func IsElite(s *Skill) bool {
	return s != nil && s.Progress >= EliteProgress
}
