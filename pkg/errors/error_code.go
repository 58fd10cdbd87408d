package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter        ErrorCode = 100
	ErrCodeInvalidConfiguration    ErrorCode = 101
	ErrCodeMissingParameter        ErrorCode = 102
	ErrCodeInvalidVolume           ErrorCode = 103
	ErrCodeInvalidPrice            ErrorCode = 104
	ErrCodeInvalidStopLoss         ErrorCode = 105
	ErrCodeInvalidTakeProfit       ErrorCode = 106
	ErrCodeInvalidActionKind       ErrorCode = 107
	ErrCodeInvalidOrderType        ErrorCode = 108
	ErrCodeTicketKindMismatch      ErrorCode = 109
	ErrCodeInvalidAdvisoryResponse ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeQuoteUnavailable      ErrorCode = 201
	ErrCodeSymbolInfoUnavailable ErrorCode = 202
	ErrCodePositionNotFound      ErrorCode = 203
	ErrCodePendingOrderNotFound  ErrorCode = 204
	ErrCodeQueryFailed           ErrorCode = 205
	ErrCodeStorageFailed         ErrorCode = 206

	// Venue errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodeOrderRejected        ErrorCode = 501
	ErrCodeVenueUnavailable     ErrorCode = 502
	ErrCodeUnsupportedOperation ErrorCode = 503
	ErrCodeInvalidProvider      ErrorCode = 504

	// Advisory errors (700-799)
	ErrCodeAdvisoryRequestFailed ErrorCode = 700
	ErrCodeAdvisoryParseFailed   ErrorCode = 701

	// Watcher errors (800-899)
	ErrCodeWatcherAlreadyRunning ErrorCode = 800
	ErrCodeWatcherNotRunning     ErrorCode = 801
)

// Category groups codes by their hundreds range.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryValidation
	CategoryData
	CategoryVenue
	CategoryAdvisory
	CategoryWatcher
)

// Category returns the range the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryValidation
	case c >= 200 && c < 300:
		return CategoryData
	case c >= 500 && c < 600:
		return CategoryVenue
	case c >= 700 && c < 800:
		return CategoryAdvisory
	case c >= 800 && c < 900:
		return CategoryWatcher
	default:
		return CategoryGeneral
	}
}
