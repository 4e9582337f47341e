package kit

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)DROP\s+TABLE`),
	regexp.MustCompile(`(?i)DELETE\s+FROM`),
	regexp.MustCompile(`(?i)INSERT\s+INTO`),
	regexp.MustCompile(`(?i)UPDATE\s+\w+\s+SET`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)expression\(`),
}

var productIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// IsSafeInput reports whether s is free of script and SQL injection markers.
func IsSafeInput(s string) bool {
	for _, p := range unsafePatterns {
		if p.MatchString(s) {
			return false
		}
	}
	return true
}

func IsValidProductID(s string) bool {
	return productIDPattern.MatchString(s)
}

var angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Sanitize trims s and neutralizes angle brackets.
func Sanitize(s string) string {
	return angleEscaper.Replace(strings.TrimSpace(s))
}

// NewValidator returns a validator that reads json/query tag names for field
// paths, compares decimals numerically and knows the "safe" and "productid"
// rules.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("safe", func(fl validator.FieldLevel) bool {
		return IsSafeInput(fl.Field().String())
	})
	_ = v.RegisterValidation("productid", func(fl validator.FieldLevel) bool {
		return IsValidProductID(fl.Field().String())
	})

	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors flattens validator output into the error envelope details.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "safe":
		return "contains unsafe content"
	case "productid":
		return "invalid product ID format"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "isdefault":
		return "unauthorized parameter"
	default:
		return "is invalid"
	}
}
