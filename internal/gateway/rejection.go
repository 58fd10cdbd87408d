package gateway

import (
	"fmt"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
)

// RejectionClass groups venue return codes by what the caller can do about them.
type RejectionClass string

const (
	RejectionInvalidVolume     RejectionClass = "invalid_volume"
	RejectionInvalidPrice      RejectionClass = "invalid_price"
	RejectionInvalidStops      RejectionClass = "invalid_stops"
	RejectionTradingDisabled   RejectionClass = "trading_disabled"
	RejectionMarketClosed      RejectionClass = "market_closed"
	RejectionInsufficientFunds RejectionClass = "insufficient_funds"
	RejectionRequote           RejectionClass = "requote"
	RejectionTimeout           RejectionClass = "timeout"
	RejectionConnectionLost    RejectionClass = "connection_lost"
	RejectionOther             RejectionClass = "other"
)

// Classify maps a non-success return code to its class.
func Classify(code types.RetCode) RejectionClass {
	switch code {
	case types.RetCodeInvalidVolume, types.RetCodeLimitVolume:
		return RejectionInvalidVolume
	case types.RetCodeInvalidPrice, types.RetCodePriceOff:
		return RejectionInvalidPrice
	case types.RetCodeInvalidStops:
		return RejectionInvalidStops
	case types.RetCodeTradeDisabled, types.RetCodeServerDisablesAT, types.RetCodeClientDisablesAT:
		return RejectionTradingDisabled
	case types.RetCodeMarketClosed:
		return RejectionMarketClosed
	case types.RetCodeNoMoney:
		return RejectionInsufficientFunds
	case types.RetCodeRequote, types.RetCodePriceChanged:
		return RejectionRequote
	case types.RetCodeTimeout:
		return RejectionTimeout
	case types.RetCodeConnection:
		return RejectionConnectionLost
	default:
		return RejectionOther
	}
}

// RejectionError is returned together with the OrderResult when the venue
// answers with a non-success code. It unwraps to ErrCodeOrderRejected.
type RejectionError struct {
	Class   RejectionClass
	RetCode types.RetCode
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected (%s, %s %d): %s", e.Class, e.RetCode, uint32(e.RetCode), e.Message)
}

func (e *RejectionError) Unwrap() error {
	return errors.Newf(errors.ErrCodeOrderRejected, "%s", e.Message)
}

// AsRejection extracts the rejection from err's chain.
func AsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return nil, false
}
