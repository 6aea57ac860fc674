package service

import (
	"fmt"
	"time"

	"marketplace/voucherhub/internal/model"
)

// transitions is the allowed-transition table. Expired is terminal.
// Nothing transitions into suspended; suspension is set out of band.
var transitions = map[model.VoucherState][]model.VoucherState{
	model.VoucherStateDraft:     {model.VoucherStatePublished},
	model.VoucherStatePublished: {model.VoucherStateClaimed, model.VoucherStateExpired},
	model.VoucherStateClaimed:   {model.VoucherStateRedeemed, model.VoucherStateExpired},
	model.VoucherStateRedeemed:  {model.VoucherStateExpired},
	model.VoucherStateSuspended: {model.VoucherStatePublished, model.VoucherStateExpired},
	model.VoucherStateExpired:   {},
}

// AllowedTransitions returns the states reachable from current in one step.
func AllowedTransitions(current model.VoucherState) []model.VoucherState {
	next := transitions[current]
	out := make([]model.VoucherState, len(next))
	copy(out, next)
	return out
}

// ValidateTransition succeeds when requested equals current or is in the
// allowed set for current. It has no side effects.
func ValidateTransition(current, requested model.VoucherState) error {
	if !current.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, current)
	}
	if !requested.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, requested)
	}
	if current == requested {
		return nil
	}
	for _, s := range transitions[current] {
		if s == requested {
			return nil
		}
	}
	return &TransitionError{From: current, To: requested, Allowed: AllowedTransitions(current)}
}

// ValidatePublishWindow checks that now lies inside the voucher's validity window.
func ValidatePublishWindow(v *model.Voucher, now time.Time) error {
	if !v.Started(now) {
		return fmt.Errorf("%w: valid_from %s is after %s",
			ErrNotYetValid, v.ValidFrom.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	if v.Ended(now) {
		return fmt.Errorf("%w: valid_until %s is before %s",
			ErrVoucherExpired, v.ValidUntil.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidatePublish combines the transition and window checks for draft/suspended -> published.
func ValidatePublish(v *model.Voucher, now time.Time) error {
	if err := ValidateTransition(v.State, model.VoucherStatePublished); err != nil {
		return err
	}
	return ValidatePublishWindow(v, now)
}

// CheckClaimable reports whether v can currently be claimed by anyone.
func CheckClaimable(v *model.Voucher, now time.Time) error {
	if v.State != model.VoucherStatePublished {
		return fmt.Errorf("%w: state is %s", ErrVoucherNotClaimable, v.State)
	}
	return ValidatePublishWindow(v, now)
}

// CheckRedeemable reports whether existing claims on v may still be redeemed.
// Claims outlive the published state: a voucher moved to claimed or redeemed
// by an operator still honours them.
func CheckRedeemable(v *model.Voucher, now time.Time) error {
	switch v.State {
	case model.VoucherStatePublished, model.VoucherStateClaimed, model.VoucherStateRedeemed:
	case model.VoucherStateExpired:
		return fmt.Errorf("%w: state is %s", ErrVoucherExpired, v.State)
	default:
		return fmt.Errorf("%w: state is %s", ErrVoucherNotRedeemable, v.State)
	}
	if v.Ended(now) {
		return fmt.Errorf("%w: valid_until %s", ErrVoucherExpired, v.ValidUntil.UTC().Format(time.RFC3339))
	}
	return nil
}
