package crm

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Accepts "+<country code><number>" (8-15 digits after the plus) or the
// dashed "123-456-7890" form.
var phonePattern = regexp.MustCompile(`^(\+\d{8,15}|\d{3}-\d{3}-\d{4})$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

type CustomerInput struct {
	Name  string `json:"name" validate:"notblank,max=255"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=20,phone"`
}

type ProductInput struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	Description string `json:"description,omitempty"`
	Price       Money  `json:"price" validate:"gt=0,lte=10000000000000"`
	Stock       *int   `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// OrderInput is checked in steps by CreateOrder; only the customer id is
// validated up front.
type OrderInput struct {
	CustomerID string     `json:"customerId" validate:"required"`
	ProductIDs []string   `json:"productIds"`
	OrderDate  *time.Time `json:"orderDate,omitempty"`
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Reason: reasonFor(fe)})
	}
	return out
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "phone":
		return "invalid phone number format"
	case "gt":
		if fe.Field() == "price" {
			return "price must be positive"
		}
		return "must be greater than " + fe.Param()
	case "lte":
		if fe.Field() == "price" {
			return "price cannot exceed " + MaxMoney.String()
		}
		return "must be at most " + fe.Param()
	case "gte":
		if fe.Field() == "stock" {
			return "stock cannot be negative"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
