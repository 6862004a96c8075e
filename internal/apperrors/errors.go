package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrPreconditionFailed indicates the deal, link or pause is in the wrong state for the request.
var ErrPreconditionFailed = errors.New("precondition failed")

// ErrConflict indicates the request collides with existing state (overlapping pause, pledged asset, stale version).
var ErrConflict = errors.New("conflict")

// ErrCollaboratorFailure indicates an external collaborator (cashbox, valuation store, persistence) failed.
var ErrCollaboratorFailure = errors.New("collaborator failure")

// ErrUnsupportedOperation indicates the operation is not available for this deal's configuration.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ErrInternal indicates an unexpected failure.
var ErrInternal = errors.New("internal error")

// Stable machine-readable codes carried by AppError.
const (
	CodeZeroOrNegativeAmount     = "ZERO_OR_NEGATIVE_AMOUNT"
	CodeNoSchedule               = "NO_SCHEDULE"
	CodeCashboxInsufficientFunds = "CASHBOX_INSUFFICIENT_FUNDS"
	CodeCashboxUnavailable       = "CASHBOX_UNAVAILABLE"
	CodeDealNotAcceptingPayments = "DEAL_NOT_ACCEPTING_PAYMENTS"
	CodeLinkNotForeclosed        = "COLLATERAL_LINK_NOT_FORECLOSED"
	CodeUnsupportedScheduleType  = "UNSUPPORTED_SCHEDULE_TYPE"
	CodeNotDisbursed             = "NOT_DISBURSED"
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodePauseOverlap             = "PAUSE_OVERLAP"
	CodePauseStillActive         = "PAUSE_STILL_ACTIVE"
	CodePauseNotRemovable        = "PAUSE_NOT_REMOVABLE"
	CodeAssetAlreadyPledged      = "ASSET_ALREADY_PLEDGED"
	CodeLinkNotActive            = "COLLATERAL_LINK_NOT_ACTIVE"
	CodeStaleCollateralLink      = "STALE_COLLATERAL_LINK"
	CodePaymentHistoryOverflow   = "PAYMENT_HISTORY_OVERFLOW"
	CodeOutstandingBalance       = "OUTSTANDING_BALANCE"
	CodeScheduleHasPayments      = "SCHEDULE_HAS_PAYMENTS"
	CodeZeroValuation            = "ZERO_VALUATION"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeNotFound                 = "NOT_FOUND"
	CodePersistence              = "PERSISTENCE_FAILURE"
	CodeRequestIDReused          = "REQUEST_ID_REUSED"
	CodeCashboxMovementReplayed  = "CASHBOX_MOVEMENT_REPLAYED"
)

// AppError carries an error kind (one of the sentinels above), a stable code and a
// human-readable message. errors.Is matches both the kind and the wrapped cause.
type AppError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an AppError without a cause.
func New(kind error, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Newf builds an AppError with a formatted message.
func Newf(kind error, code, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an AppError around an underlying cause.
func Wrap(kind error, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

// NewValidation is a shorthand for validation failures on caller input.
func NewValidation(code, message string) *AppError {
	return New(ErrValidation, code, message)
}

// NewNotFound reports a missing entity.
func NewNotFound(entity, id string) *AppError {
	return Newf(ErrNotFound, CodeNotFound, "%s %s not found", entity, id)
}

// NewPrecondition reports an entity in the wrong state.
func NewPrecondition(code, message string) *AppError {
	return New(ErrPreconditionFailed, code, message)
}

// NewConflict reports a collision with existing state.
func NewConflict(code, message string) *AppError {
	return New(ErrConflict, code, message)
}

// NewPersistence wraps a storage failure as a collaborator failure.
func NewPersistence(message string, err error) *AppError {
	return Wrap(ErrCollaboratorFailure, CodePersistence, message, err)
}

var kinds = []error{
	ErrValidation,
	ErrNotFound,
	ErrDuplicate,
	ErrPreconditionFailed,
	ErrConflict,
	ErrCollaboratorFailure,
	ErrUnsupportedOperation,
	ErrInternal,
}

// KindOf returns the sentinel kind carried by err, or ErrInternal.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// KindName returns the short name of err's kind for API responses.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrDuplicate:
		return "duplicate"
	case ErrPreconditionFailed:
		return "precondition_failed"
	case ErrConflict:
		return "conflict"
	case ErrCollaboratorFailure:
		return "collaborator_failure"
	case ErrUnsupportedOperation:
		return "unsupported_operation"
	default:
		return "internal"
	}
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MessageOf returns the message of the first AppError in err's chain, or err.Error().
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
