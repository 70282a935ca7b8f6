package withdrawal

import (
	"errors"
	"fmt"
)

// ErrBelowMinimum rejects withdrawals under the schedule's floor
var ErrBelowMinimum = errors.New("withdrawal amount below minimum")

// Tier maps amounts strictly below UpperBound to a flat fee
type Tier struct {
	UpperBound int64
	Fee        int64
}

// FeeSchedule computes the flat fee for a withdrawal amount. Tiers must
// be ordered by strictly increasing UpperBound; FeeAbove applies at and
// beyond the highest bound.
type FeeSchedule struct {
	MinAmount int64
	Tiers     []Tier
	FeeAbove  int64
}

// FeeFor returns the fee for the given amount, or ErrBelowMinimum when
// the amount is under the schedule's floor.
func (s FeeSchedule) FeeFor(amount int64) (int64, error) {
	if amount < s.MinAmount {
		return 0, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, s.MinAmount)
	}
	for _, tier := range s.Tiers {
		if amount < tier.UpperBound {
			return tier.Fee, nil
		}
	}
	return s.FeeAbove, nil
}
