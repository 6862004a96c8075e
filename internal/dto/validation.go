package dto

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RegisterValidators teaches gin's validator about decimal.Decimal fields and adds the
// decimal_gt0, decimal_gte0 and decimal_ne0 tags. Safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	rules := map[string]func(decimal.Decimal) bool{
		"decimal_gt0":  func(d decimal.Decimal) bool { return d.IsPositive() },
		"decimal_gte0": func(d decimal.Decimal) bool { return !d.IsNegative() },
		"decimal_ne0":  func(d decimal.Decimal) bool { return !d.IsZero() },
	}
	for tag, rule := range rules {
		if err := v.RegisterValidation(tag, decimalRule(rule)); err != nil {
			return err
		}
	}
	return nil
}

// decimalValue exposes a decimal to validator as its string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalRule(rule func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return rule(d)
	}
}
