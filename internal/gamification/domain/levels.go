package domain

import (
	"sort"
	"strconv"

	"github.com/smallbiznis/studiobook/internal/config"
)

const StartingLevel = 1

type Requirement struct {
	Level               int     `json:"level"`
	MinBookings         int64   `json:"min_bookings"`
	MinReviewPercentage float64 `json:"min_review_percentage"`
	// RequiredGrowth is the review growth needed to leave Level-1 for Level.
	RequiredGrowth float64 `json:"required_growth"`
}

// LevelTable is an immutable snapshot of the promotion rules.
type LevelTable struct {
	requirements            map[int]config.LevelRequirement
	growth                  map[int]float64
	defaultGrowth           float64
	enforceReviewPercentage bool
	windowMonths            int
	maxLevel                int
}

func NewLevelTable(cfg config.LevelingConfig) LevelTable {
	t := LevelTable{
		requirements:            make(map[int]config.LevelRequirement, len(cfg.Requirements)),
		growth:                  make(map[int]float64, len(cfg.Growth)),
		defaultGrowth:           cfg.DefaultGrowthPercentage,
		enforceReviewPercentage: cfg.EnforceReviewPercentage,
		windowMonths:            cfg.WindowMonths,
		maxLevel:                StartingLevel,
	}
	for _, req := range cfg.Requirements {
		t.requirements[req.Level] = req
		if req.Level > t.maxLevel {
			t.maxLevel = req.Level
		}
	}
	for _, g := range cfg.Growth {
		t.growth[g.Level] = g.MinPercentage
	}
	return t
}

// RequirementFor returns the requirement to reach level. Level 1 and levels past
// the top of the table have none.
func (t LevelTable) RequirementFor(level int) (config.LevelRequirement, bool) {
	req, ok := t.requirements[level]
	return req, ok
}

// RequiredGrowth is keyed by the subject's current level.
func (t LevelTable) RequiredGrowth(currentLevel int) float64 {
	if pct, ok := t.growth[currentLevel]; ok {
		return pct
	}
	return t.defaultGrowth
}

func (t LevelTable) MaxLevel() int {
	return t.maxLevel
}

func (t LevelTable) WindowMonths() int {
	return t.windowMonths
}

func (t LevelTable) EnforceReviewPercentage() bool {
	return t.enforceReviewPercentage
}

// Requirements lists every reachable level in ascending order.
func (t LevelTable) Requirements() []Requirement {
	out := make([]Requirement, 0, len(t.requirements))
	for level, req := range t.requirements {
		out = append(out, Requirement{
			Level:               level,
			MinBookings:         req.MinBookings,
			MinReviewPercentage: req.MinReviewPercentage,
			RequiredGrowth:      t.RequiredGrowth(level - 1),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// GrowthCheck is the outcome of the review growth gate.
type GrowthCheck struct {
	Passed     bool
	Percentage *float64
	Required   float64
}

// CheckGrowth compares the reviews in the window with the count seen at the
// previous evaluation. No history passes; a previous count of zero passes once
// any review exists.
func (t LevelTable) CheckGrowth(currentLevel int, prev *int64, totalReviews int64, fresh bool) GrowthCheck {
	required := t.RequiredGrowth(currentLevel)
	if fresh || prev == nil {
		return GrowthCheck{Passed: true, Required: required}
	}
	if *prev == 0 {
		return GrowthCheck{Passed: totalReviews > 0, Required: required}
	}
	pct := float64(totalReviews-*prev) / float64(*prev) * 100
	return GrowthCheck{Passed: pct >= required, Percentage: &pct, Required: required}
}

// ReviewPercentage is reviews per booking in the window, as a percentage.
func ReviewPercentage(totalBookings, totalReviews int64) float64 {
	if totalBookings <= 0 {
		return 0
	}
	return float64(totalReviews) / float64(totalBookings) * 100
}

// Decision is the pure promotion verdict for one evaluation.
type Decision struct {
	CurrentLevel int
	NextLevel    int
	Promote      bool
	Growth       GrowthCheck
	Reason       string
}

const (
	ReasonPromoted         = "promoted"
	ReasonMaxLevel         = "max_level"
	ReasonBookingsShort    = "insufficient_bookings"
	ReasonGrowthShort      = "insufficient_review_growth"
	ReasonReviewRatioShort = "insufficient_review_percentage"
)

// Decide applies the table to one subject's counts. At most one level is gained.
func (t LevelTable) Decide(currentLevel int, prev *int64, fresh bool, totalBookings, totalReviews int64) Decision {
	if currentLevel < StartingLevel {
		currentLevel = StartingLevel
	}
	d := Decision{
		CurrentLevel: currentLevel,
		NextLevel:    currentLevel,
		Growth:       t.CheckGrowth(currentLevel, prev, totalReviews, fresh),
	}

	req, ok := t.RequirementFor(currentLevel + 1)
	switch {
	case !ok:
		d.Reason = ReasonMaxLevel
	case totalBookings < req.MinBookings:
		d.Reason = ReasonBookingsShort
	case !d.Growth.Passed:
		d.Reason = ReasonGrowthShort
	case t.enforceReviewPercentage && ReviewPercentage(totalBookings, totalReviews) < req.MinReviewPercentage:
		d.Reason = ReasonReviewRatioShort
	default:
		d.Promote = true
		d.NextLevel = currentLevel + 1
		d.Reason = ReasonPromoted
	}
	return d
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
