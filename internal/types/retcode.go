package types

import "fmt"

// RetCode is a venue return code. Values follow TRADE_RETCODE_*.
type RetCode uint32

const (
	RetCodeRequote           RetCode = 10004
	RetCodeReject            RetCode = 10006
	RetCodeCancel            RetCode = 10007
	RetCodePlaced            RetCode = 10008
	RetCodeDone              RetCode = 10009
	RetCodeDonePartial       RetCode = 10010
	RetCodeError             RetCode = 10011
	RetCodeTimeout           RetCode = 10012
	RetCodeInvalid           RetCode = 10013
	RetCodeInvalidVolume     RetCode = 10014
	RetCodeInvalidPrice      RetCode = 10015
	RetCodeInvalidStops      RetCode = 10016
	RetCodeTradeDisabled     RetCode = 10017
	RetCodeMarketClosed      RetCode = 10018
	RetCodeNoMoney           RetCode = 10019
	RetCodePriceChanged      RetCode = 10020
	RetCodePriceOff          RetCode = 10021
	RetCodeInvalidExpiration RetCode = 10022
	RetCodeOrderChanged      RetCode = 10023
	RetCodeTooManyRequests   RetCode = 10024
	RetCodeNoChanges         RetCode = 10025
	RetCodeServerDisablesAT  RetCode = 10026
	RetCodeClientDisablesAT  RetCode = 10027
	RetCodeLocked            RetCode = 10028
	RetCodeFrozen            RetCode = 10029
	RetCodeInvalidFill       RetCode = 10030
	RetCodeConnection        RetCode = 10031
	RetCodeOnlyReal          RetCode = 10032
	RetCodeLimitOrders       RetCode = 10033
	RetCodeLimitVolume       RetCode = 10034
	RetCodeInvalidOrder      RetCode = 10035
	RetCodePositionClosed    RetCode = 10036
)

var retCodeNames = map[RetCode]string{
	RetCodeRequote:           "REQUOTE",
	RetCodeReject:            "REJECT",
	RetCodeCancel:            "CANCEL",
	RetCodePlaced:            "PLACED",
	RetCodeDone:              "DONE",
	RetCodeDonePartial:       "DONE_PARTIAL",
	RetCodeError:             "ERROR",
	RetCodeTimeout:           "TIMEOUT",
	RetCodeInvalid:           "INVALID",
	RetCodeInvalidVolume:     "INVALID_VOLUME",
	RetCodeInvalidPrice:      "INVALID_PRICE",
	RetCodeInvalidStops:      "INVALID_STOPS",
	RetCodeTradeDisabled:     "TRADE_DISABLED",
	RetCodeMarketClosed:      "MARKET_CLOSED",
	RetCodeNoMoney:           "NO_MONEY",
	RetCodePriceChanged:      "PRICE_CHANGED",
	RetCodePriceOff:          "PRICE_OFF",
	RetCodeInvalidExpiration: "INVALID_EXPIRATION",
	RetCodeOrderChanged:      "ORDER_CHANGED",
	RetCodeTooManyRequests:   "TOO_MANY_REQUESTS",
	RetCodeNoChanges:         "NO_CHANGES",
	RetCodeServerDisablesAT:  "SERVER_DISABLES_AT",
	RetCodeClientDisablesAT:  "CLIENT_DISABLES_AT",
	RetCodeLocked:            "LOCKED",
	RetCodeFrozen:            "FROZEN",
	RetCodeInvalidFill:       "INVALID_FILL",
	RetCodeConnection:        "CONNECTION",
	RetCodeOnlyReal:          "ONLY_REAL",
	RetCodeLimitOrders:       "LIMIT_ORDERS",
	RetCodeLimitVolume:       "LIMIT_VOLUME",
	RetCodeInvalidOrder:      "INVALID_ORDER",
	RetCodePositionClosed:    "POSITION_CLOSED",
}

func (c RetCode) String() string {
	if name, ok := retCodeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("RETCODE(%d)", uint32(c))
}

// IsSuccess reports whether the code means the request was accepted.
func (c RetCode) IsSuccess() bool {
	return c == RetCodeDone || c == RetCodePlaced || c == RetCodeDonePartial
}
