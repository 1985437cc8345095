// Package types contains small value types shared by adapters.
package types

import "time"

// Bucket groups athletes by overall risk for the team heat map.
type Bucket string

const (
	BucketLow      Bucket = "low"
	BucketModerate Bucket = "moderate"
	BucketHigh     Bucket = "high"
)

// Bucket lower bounds. Each is inclusive.
const (
	ModerateRiskFrom = 0.5
	HighRiskFrom     = 0.7
)

// BucketOf maps an overall risk to its bucket.
func BucketOf(risk float64) Bucket {
	switch {
	case risk < ModerateRiskFrom:
		return BucketLow
	case risk < HighRiskFrom:
		return BucketModerate
	default:
		return BucketHigh
	}
}

// BoardEntry is one row of the team risk board.
type BoardEntry struct {
	Rank        int       `json:"rank"`
	AthleteID   string    `json:"athlete_id"`
	OverallRisk float64   `json:"overall_risk"`
	Bucket      Bucket    `json:"bucket"`
	AssessedAt  time.Time `json:"assessed_at"`
}
