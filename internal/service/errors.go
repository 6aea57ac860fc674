package service

import (
	"errors"
	"fmt"
	"strings"

	"marketplace/voucherhub/internal/model"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidTransition
	KindBusinessRule
	KindValidation
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_state_transition"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "storage_conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a typed, user-presentable failure. Sentinels below are compared
// with errors.Is; wrapped variants add detail with %w.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrVoucherNotFound = newError(KindNotFound, "voucher_not_found", "voucher not found")
	ErrNotClaimed      = newError(KindNotFound, "voucher_not_claimed", "voucher has not been claimed by this user")

	ErrInvalidStateTransition = newError(KindInvalidTransition, "invalid_state_transition", "invalid state transition")

	ErrNotYetValid           = newError(KindBusinessRule, "voucher_not_yet_valid", "voucher is not yet valid")
	ErrVoucherExpired        = newError(KindBusinessRule, "voucher_expired", "voucher has expired")
	ErrVoucherNotClaimable   = newError(KindBusinessRule, "voucher_not_claimable", "voucher is not available for claiming")
	ErrAlreadyClaimed        = newError(KindBusinessRule, "voucher_already_claimed", "voucher already claimed by this user")
	ErrAlreadyRedeemed       = newError(KindBusinessRule, "voucher_already_redeemed", "voucher already redeemed by this user")
	ErrClaimExpired          = newError(KindBusinessRule, "claim_expired", "claim has expired")
	ErrVoucherNotRedeemable  = newError(KindBusinessRule, "voucher_not_redeemable", "voucher is not available for redemption")
	ErrMaxRedemptionsReached = newError(KindBusinessRule, "max_redemptions_reached", "voucher has reached its maximum redemptions")
	ErrUnauthorizedBusiness  = newError(KindBusinessRule, "unauthorized_business", "voucher does not belong to this business")
	ErrVoucherNotEditable    = newError(KindBusinessRule, "voucher_not_editable", "only draft vouchers can be edited")

	ErrInvalidID       = newError(KindValidation, "invalid_id", "malformed identifier")
	ErrInvalidCode     = newError(KindValidation, "invalid_code", "code must not be empty")
	ErrInvalidState    = newError(KindValidation, "invalid_state", "unknown voucher state")
	ErrInvalidVoucher  = newError(KindValidation, "invalid_voucher", "invalid voucher")
	ErrInvalidScanType = newError(KindValidation, "invalid_scan", "invalid scan context")

	ErrStorageConflict = newError(KindConflict, "storage_conflict", "conflicting write, please retry")
	ErrCodeTaken       = newError(KindConflict, "code_taken", "code is already in use")

	ErrCodeGeneratorUnavailable = newError(KindUnavailable, "code_generator_unavailable", "no code generator configured")
)

// TransitionError names a rejected state change and what would have been allowed.
type TransitionError struct {
	From    model.VoucherState
	To      model.VoucherState
	Allowed []model.VoucherState
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("invalid state transition from %s to %s (allowed: %s)", e.From, e.To, allowed)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// KindOf classifies err; anything not produced by this package is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidVoucher, fmt.Sprintf(format, args...))
}
