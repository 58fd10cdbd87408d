package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

// ============================================================================
// Construction
// ============================================================================

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeInvalidVolume, "volume must be > 0, got %v", -1.5)
	suite.Equal(ErrCodeInvalidVolume, err.Code)
	suite.Equal("volume must be > 0, got -1.5", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[103] volume must be > 0, got -1.5", err.Error())
}

func (suite *ErrorTestSuite) TestWrapfKeepsCause() {
	cause := errors.New("connection refused")
	err := Wrapf(ErrCodeVenueUnavailable, cause, "quote %s", "EURUSD")
	suite.Equal("[502] quote EURUSD: connection refused", err.Error())
	suite.True(Is(err, cause))
	suite.Equal(cause, err.Unwrap())
}

// ============================================================================
// Inspection
// ============================================================================

func (suite *ErrorTestSuite) TestGetCodeReturnsOutermost() {
	inner := New(ErrCodeQuoteUnavailable, "no tick")
	err := Wrap(ErrCodeOrderFailed, "close failed", inner)
	suite.Equal(ErrCodeOrderFailed, GetCode(err))
	suite.True(HasCode(err, ErrCodeOrderFailed))
	suite.False(HasCode(err, ErrCodeQuoteUnavailable))
}

func (suite *ErrorTestSuite) TestGetCodeForeignError() {
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestAs() {
	var coded *Error
	suite.True(As(New(ErrCodeMissingParameter, "order_id required"), &coded))
	suite.Equal(ErrCodeMissingParameter, coded.Code)
}

func (suite *ErrorTestSuite) TestMessage() {
	suite.Equal("", Message(nil))
	suite.Equal("plain", Message(errors.New("plain")))
	suite.Equal("position 7 not found", Message(Wrap(ErrCodePositionNotFound, "position 7 not found", errors.New("404"))))
}

func (suite *ErrorTestSuite) TestCategories() {
	tests := []struct {
		code     ErrorCode
		category Category
	}{
		{ErrCodeUnknown, CategoryGeneral},
		{ErrCodeInvalidStopLoss, CategoryValidation},
		{ErrCodeTicketKindMismatch, CategoryValidation},
		{ErrCodeStorageFailed, CategoryData},
		{ErrCodeOrderRejected, CategoryVenue},
		{ErrCodeAdvisoryParseFailed, CategoryAdvisory},
		{ErrCodeWatcherNotRunning, CategoryWatcher},
	}

	for _, tt := range tests {
		suite.Equal(tt.category, tt.code.Category(), "code %d", tt.code)
	}
}

func (suite *ErrorTestSuite) TestIsValidation() {
	suite.True(IsValidation(New(ErrCodeInvalidPrice, "price")))
	suite.False(IsValidation(New(ErrCodeVenueUnavailable, "down")))
	suite.False(IsValidation(errors.New("plain")))
}
