package httpx

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateBody returns a VALIDATION_ERROR whose details list every failing
// field by its JSON path, e.g. "items.0.productId".
func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Wrap(apperr.KindValidation, err, "Validation failed")
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: fieldMessage(fe)})
	}
	return apperr.WithDetails(apperr.KindValidation, "Validation failed", out)
}

// fieldPath drops the root struct name and turns "items[0]" into "items.0".
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		rest = ns
	}
	return strings.NewReplacer("[", ".", "]", "").Replace(rest)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() + ":" + fe.Tag() {
	case "name:required":
		return "Name is required"
	case "email:required", "email:email":
		return "Invalid email"
	case "phone:required", "phone:min":
		return "Invalid phone number"
	case "address:required", "address:min":
		return "Address is required"
	case "items:required", "items:min":
		return "At least one item is required"
	case "productId:required", "productId:uuid":
		return "Invalid product ID"
	case "quantity:required", "quantity:min":
		return "Quantity must be at least 1"
	case "orderId:required":
		return "Order ID is required"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
