package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Runway is the result of spreading the current net cash until a target day.
type Runway struct {
	Today          Date
	Target         Date
	Days           int
	NetCash        Money
	DailyAllowance Money
}

// Simulate computes the safe daily allowance netCash / days between today and
// target. The allowance is floored to whole cents so the sum over the period
// never exceeds netCash.
//
// The target must be strictly after today (ErrInvalidTarget), and netCash
// must be positive (ErrInsufficientFunds). On ErrInsufficientFunds the
// returned Runway still carries Days and NetCash for the message.
func Simulate(netCash Money, target, today Date) (Runway, error) {
	r := Runway{Today: today, Target: target, NetCash: netCash}
	if target.IsZero() || today.IsZero() {
		return r, fmt.Errorf("%w: missing date", ErrInvalidTarget)
	}
	r.Days = today.DaysUntil(target)
	if r.Days <= 0 {
		return r, fmt.Errorf("%w: %s is not after %s", ErrInvalidTarget, target, today)
	}
	if netCash.Cents <= 0 {
		return r, fmt.Errorf("%w: net cash is %s", ErrInsufficientFunds, netCash.Display())
	}
	daily := decimal.NewFromInt(netCash.Cents).Div(decimal.NewFromInt(int64(r.Days))).Floor()
	r.DailyAllowance = Money{Cents: daily.IntPart()}
	return r, nil
}
