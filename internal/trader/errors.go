package trader

import "errors"

// Trade failures carry a machine-readable kind and are never retried
// automatically; the caller resubmits. Match with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidAction        = errors.New("invalid action")
	ErrCoinNotFound         = errors.New("coin not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// Kind maps a trade error to its wire identifier; unrecognized errors report
// as store_unavailable since every other failure path is a typed one.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, ErrCoinNotFound):
		return "coin_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInsufficientHoldings):
		return "insufficient_holdings"
	default:
		return "store_unavailable"
	}
}

// IsDomain reports whether err is a business rejection rather than an
// infrastructure failure.
func IsDomain(err error) bool {
	for _, kind := range []error{
		ErrInvalidInput, ErrInvalidAction, ErrCoinNotFound, ErrUserNotFound,
		ErrInsufficientBalance, ErrInsufficientHoldings,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
