package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID               int64
	Email            string
	PasswordHash     string
	AnalysisCount    int
	SubscriptionTier string
	CreatedAt        time.Time
}

// AnalysisEntry is one row of a user's analysis history. Result holds the
// full record as it was returned to the caller.
type AnalysisEntry struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"-"`
	Target       string          `json:"target"`
	TargetKind   string          `json:"target_kind"`
	OverallScore float64         `json:"overall_score"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}
