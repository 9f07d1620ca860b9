// Package validation comparte un único validador entre el binding de gin y los chequeos del cliente.
package validation

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/model"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Engine devuelve el validador compartido, con los tags propios registrados.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.SetTagName("binding")
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return model.Status(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
			return model.PaymentStatus(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Struct valida s y traduce el primer error a un *apperr.ValidationError.
func Struct(s any) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fromFieldError(verrs[0])
	}
	return apperr.Invalid("request", "%v", err)
}

func fromFieldError(fe validator.FieldError) *apperr.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(field, "is required")
	case "order_status":
		return apperr.Invalid(field, "unknown order status %q", fe.Value())
	case "payment_status":
		return apperr.Invalid(field, "unknown payment status %q", fe.Value())
	case "gte":
		return apperr.Invalid(field, "must be at least %s", fe.Param())
	case "gt":
		return apperr.Invalid(field, "must be greater than %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return apperr.Invalid(field, "at most %s entries allowed", fe.Param())
		}
		return apperr.Invalid(field, "must be at most %s characters", fe.Param())
	case "min":
		return apperr.Invalid(field, "at least %s entries required", fe.Param())
	case "http_url", "url":
		return apperr.Invalid(field, "must be an http(s) URL")
	default:
		return apperr.Invalid(field, "failed %s validation", fe.Tag())
	}
}

// ParseAmount acepta montos en unidades menores: finitos, no negativos y enteros.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, apperr.Invalid("amount", "is required")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Invalid("amount", "%q is not a number", raw)
	}
	if f < 0 {
		return 0, apperr.Invalid("amount", "must not be negative")
	}
	if f != math.Trunc(f) {
		return 0, apperr.Invalid("amount", "must be a whole amount")
	}
	if f > math.MaxInt64/2 {
		return 0, apperr.Invalid("amount", "is too large")
	}
	return int64(f), nil
}
