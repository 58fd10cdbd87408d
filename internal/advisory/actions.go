package advisory

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
)

type openFields struct {
	Symbol           string  `json:"symbol" validate:"required"`
	Volume           float64 `json:"volume" validate:"gt=0"`
	OrderType        string  `json:"order_type" validate:"omitempty,oneof=MARKET LIMIT STOP"`
	StopLossPoints   float64 `json:"stop_loss_points" validate:"gte=0"`
	TakeProfitPoints float64 `json:"take_profit_points" validate:"gte=0"`
}

type ticketFields struct {
	Symbol  string `json:"symbol"`
	OrderID uint64 `json:"order_id" validate:"required"`
}

type modifyFields struct {
	OrderID          uint64   `json:"order_id" validate:"required"`
	StopLossPoints   *float64 `json:"stop_loss_points" validate:"omitempty,gte=0"`
	TakeProfitPoints *float64 `json:"take_profit_points" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Actions converts every recommendation, in order.
func (r Response) Actions() []types.Action {
	actions := make([]types.Action, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		actions = append(actions, rec.ToAction())
	}

	return actions
}

// ToAction validates the fields required by the recommendation's action and
// returns the matching action. A recommendation that fails validation becomes
// an InvalidAction carrying the reason.
func (r Recommendation) ToAction() types.Action {
	name := strings.ToUpper(strings.TrimSpace(r.Action))
	symbol := strings.TrimSpace(r.Symbol)

	if types.IsSkipMarker(name) {
		return types.SkipAction{Symbol: symbol, Marker: name}
	}

	invalid := func(err error) types.Action {
		return types.InvalidAction{Symbol: symbol, Name: name, Reason: describe(name, err)}
	}

	switch name {
	case "BUY", "SELL":
		entry := strings.ToUpper(strings.TrimSpace(r.OrderType))
		fields := openFields{
			Symbol:           symbol,
			Volume:           r.Volume,
			OrderType:        entry,
			StopLossPoints:   valueOrZero(r.StopLossPoints),
			TakeProfitPoints: valueOrZero(r.TakeProfitPoints),
		}
		if err := validate.Struct(fields); err != nil {
			return invalid(err)
		}

		if entry == "" {
			entry = string(types.EntryMarket)
		}

		side := types.SideBuy
		if name == "SELL" {
			side = types.SideSell
		}

		return types.OpenAction{
			Symbol:            symbol,
			Side:              side,
			Entry:             types.EntryType(entry),
			Volume:            r.Volume,
			EntryOffsetPoints: r.EntryOffsetPoints,
			StopLossPoints:    fields.StopLossPoints,
			TakeProfitPoints:  fields.TakeProfitPoints,
			Comment:           r.Comment,
			Reasoning:         r.Reasoning,
		}
	case "CLOSE", "CANCEL":
		if err := validate.Struct(ticketFields{Symbol: symbol, OrderID: uint64(r.OrderID)}); err != nil {
			return invalid(err)
		}

		if name == "CLOSE" {
			return types.CloseAction{Symbol: symbol, Ticket: uint64(r.OrderID), Comment: r.Comment, Reasoning: r.Reasoning}
		}

		return types.CancelAction{Symbol: symbol, Ticket: uint64(r.OrderID), Comment: r.Comment, Reasoning: r.Reasoning}
	case "MODIFY":
		fields := modifyFields{
			OrderID:          uint64(r.OrderID),
			StopLossPoints:   r.StopLossPoints,
			TakeProfitPoints: r.TakeProfitPoints,
		}
		if err := validate.Struct(fields); err != nil {
			return invalid(err)
		}

		return types.ModifyAction{
			Symbol:           symbol,
			Ticket:           uint64(r.OrderID),
			StopLossPoints:   toOption(r.StopLossPoints),
			TakeProfitPoints: toOption(r.TakeProfitPoints),
			Comment:          r.Comment,
			Reasoning:        r.Reasoning,
		}
	case "":
		return types.InvalidAction{Symbol: symbol, Name: name, Reason: "recommendation has no action"}
	default:
		return types.InvalidAction{Symbol: symbol, Name: name, Reason: fmt.Sprintf("unknown action %q", name)}
	}
}

func describe(action string, err error) string {
	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Sprintf("invalid %s recommendation: %v", action, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fieldProblem(fe))
	}

	return fmt.Sprintf("invalid %s recommendation: %s", action, strings.Join(problems, "; "))
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	errs, ok := err.(validator.ValidationErrors) //nolint:errorlint
	if ok {
		*target = errs
	}

	return ok
}

func fieldProblem(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be > %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}

func toOption(v *float64) optional.Option[float64] {
	if v == nil {
		return optional.None[float64]()
	}

	return optional.Some(*v)
}
