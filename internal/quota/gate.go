package quota

import (
	"errors"
	"fmt"
)

const (
	TierFree = "free"

	DefaultFreeTierLimit = 10
)

var ErrQuotaExceeded = errors.New("free analysis limit reached")

// Account is the quota state of one account as read from the store.
type Account struct {
	ID            int64
	Email         string
	Tier          string
	AnalysisCount int
}

// Gate decides whether an account may start another analysis. It only
// reads account state; increments go through the store.
type Gate struct {
	freeLimit int
}

func NewGate(freeLimit int) *Gate {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeTierLimit
	}
	return &Gate{freeLimit: freeLimit}
}

// Check returns ErrQuotaExceeded once a free account has used its allowance.
// Every tier other than free is unbounded.
func (g *Gate) Check(acc Account) error {
	if acc.Tier != TierFree {
		return nil
	}
	if acc.AnalysisCount >= g.freeLimit {
		return fmt.Errorf("%w (%d of %d used)", ErrQuotaExceeded, acc.AnalysisCount, g.freeLimit)
	}
	return nil
}

// Remaining reports how many analyses are left, or -1 for unbounded tiers.
func (g *Gate) Remaining(acc Account) int {
	if acc.Tier != TierFree {
		return -1
	}
	if left := g.freeLimit - acc.AnalysisCount; left > 0 {
		return left
	}
	return 0
}

// FreeLimit is the number of analyses a free account may store. Stores use it
// to enforce the limit atomically with the increment.
func (g *Gate) FreeLimit() int {
	return g.freeLimit
}
