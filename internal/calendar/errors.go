package calendar

import "errors"

var (
	// ErrNoSession means no calendar state exists for the operator yet.
	ErrNoSession = errors.New("no calendar session; open a room and board type first")
	// ErrNotReady means a room or board type has not been selected.
	ErrNotReady = errors.New("room and board type must be selected")
	// ErrNoEdit means there is no open edit session to save or cancel.
	ErrNoEdit = errors.New("no open edit session")
	// ErrNoRangeSelected means a range edit was requested without a range.
	ErrNoRangeSelected = errors.New("no date range selected")
	// ErrEmptyClipboard means paste was requested with nothing copied.
	ErrEmptyClipboard = errors.New("clipboard is empty")
	// ErrCopyRequiresPrice means the source day has no configured rate.
	ErrCopyRequiresPrice = errors.New("cannot copy a day without a price")
	// ErrInvalidFilter means an unknown filter mode was requested.
	ErrInvalidFilter = errors.New("invalid filter mode")
	// ErrFetchInFlight gates the manual refresh while a fetch is running.
	ErrFetchInFlight = errors.New("a fetch is already in flight")
	// ErrMonthOutOfRange means navigation stepped past the supported years.
	ErrMonthOutOfRange = errors.New("target month is outside the supported calendar range")
)
