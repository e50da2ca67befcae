package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

var (
	// ErrValidation marks caller input that failed ledger validation.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrUnknownAccount indicates a missing or inactive chart of accounts code.
	ErrUnknownAccount = errors.New("accounting: unknown or inactive account")
	// ErrPeriodLocked indicates a temporarily locked fiscal period.
	ErrPeriodLocked = errors.New("accounting: period locked")
	// ErrPeriodClosed indicates a permanently closed fiscal period.
	ErrPeriodClosed = errors.New("accounting: period closed")
	// ErrPeriodNotFound indicates no fiscal period matched.
	ErrPeriodNotFound = errors.New("accounting: period not found")
	// ErrPeriodOverlap indicates the requested period conflicts with an existing range.
	ErrPeriodOverlap = errors.New("accounting: period overlaps existing range")
	// ErrConcurrency indicates a lock wait timeout or serialization failure.
	ErrConcurrency = errors.New("accounting: concurrent update, try again")
	// ErrVoucherNotFound indicates no ledger entries exist for a voucher.
	ErrVoucherNotFound = errors.New("accounting: voucher not found")
	// ErrAlreadyReversed indicates the voucher already has a reversal posted.
	ErrAlreadyReversed = errors.New("accounting: voucher already reversed")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
)

// ValidationError reports malformed posting input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("accounting: invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("accounting: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ImbalancedPostingError carries both totals of a rejected voucher.
type ImbalancedPostingError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *ImbalancedPostingError) Error() string {
	return fmt.Sprintf("accounting: journal lines must balance: debit %s, credit %s",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *ImbalancedPostingError) Is(target error) bool {
	return target == ErrUnbalanced || target == ErrValidation
}

// UnknownAccountError names the offending account code.
type UnknownAccountError struct {
	Code     string
	Inactive bool
}

func (e *UnknownAccountError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("accounting: account %q is inactive", e.Code)
	}
	return fmt.Sprintf("accounting: unknown account %q", e.Code)
}

func (e *UnknownAccountError) Is(target error) bool {
	return target == ErrUnknownAccount || target == ErrValidation
}

// PeriodLockedError rejects postings into a locked period.
type PeriodLockedError struct {
	PeriodID int64
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("accounting: period %d is locked", e.PeriodID)
}

func (e *PeriodLockedError) Is(target error) bool { return target == ErrPeriodLocked }

// PeriodClosedError rejects postings into a closed period.
type PeriodClosedError struct {
	PeriodID int64
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("accounting: period %d is closed", e.PeriodID)
}

func (e *PeriodClosedError) Is(target error) bool { return target == ErrPeriodClosed }

// ConcurrencyError wraps a lock wait timeout or serialization failure.
type ConcurrencyError struct {
	Op  string
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("accounting: %s: concurrent update, try again: %v", e.Op, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }

func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrency }

// VoucherNotFoundError reports a missing reversal target.
type VoucherNotFoundError struct {
	VoucherNumber string
}

func (e *VoucherNotFoundError) Error() string {
	return fmt.Sprintf("accounting: voucher %q not found", e.VoucherNumber)
}

func (e *VoucherNotFoundError) Is(target error) bool { return target == ErrVoucherNotFound }

// WrapConcurrency converts retryable database failures into ConcurrencyError.
func WrapConcurrency(op string, err error) error {
	if err == nil {
		return nil
	}
	if db.IsLockFailure(err) {
		return &ConcurrencyError{Op: op, Err: err}
	}
	return err
}
