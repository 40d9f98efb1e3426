package schema

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"
)

const validateLogPrefix = "schema:validate"

// Violation is one failed field constraint.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every constraint violation found in one pass; the
// contract is all-violations, not first-violation.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	reasons := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		reasons[i] = v.Field + ": " + v.Reason
	}
	return "validation failed: " + strings.Join(reasons, "; ")
}

// Validate applies the metadata table's constraints to a constructed
// capability instance. v must be a pointer so that format normalization
// (phone numbers canonicalized to E.164) can write back. Nested describable
// fields are validated recursively under a dotted field path.
func Validate(v Describable) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%s - Validate requires a non-nil pointer, got %T", validateLogPrefix, v)
	}

	var verr ValidationError
	if err := validateStruct(rv.Elem(), "", &verr); err != nil {
		return err
	}
	if len(verr.Violations) > 0 {
		return &verr
	}
	return nil
}

func validateStruct(rv reflect.Value, prefix string, verr *ValidationError) error {
	specs, err := specsFor(rv.Type())
	if err != nil {
		return err
	}

	for _, spec := range specs {
		path := spec.name
		if prefix != "" {
			path = prefix + "." + spec.name
		}
		fv := rv.Field(spec.index)

		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			if hasRule(spec.rules, "required") {
				verr.Violations = append(verr.Violations, Violation{Field: path, Reason: "is required"})
			}
			continue
		}
		elem := reflect.Indirect(fv)

		if _, ok := describableValue(deref(spec.typ)); ok {
			if err := validateStruct(elem, path, verr); err != nil {
				return err
			}
			continue
		}

		for _, r := range spec.rules {
			applyRule(r, path, elem, verr)
		}
	}
	return nil
}

func applyRule(r rule, path string, fv reflect.Value, verr *ValidationError) {
	fail := func(reason string) {
		verr.Violations = append(verr.Violations, Violation{Field: path, Reason: reason})
	}

	switch r.kind {
	case "required":
		if fv.Kind() == reflect.String && fv.String() == "" {
			fail("is required")
		}
	case "min":
		if n, ok := fieldSize(fv); ok && n < r.num {
			fail(fmt.Sprintf("must be at least %v", r.num))
		}
	case "max":
		if n, ok := fieldSize(fv); ok && n > r.num {
			fail(fmt.Sprintf("must be at most %v", r.num))
		}
	case "email":
		addr := fv.String()
		if addr == "" {
			return
		}
		parsed, err := mail.ParseAddress(addr)
		if err != nil || parsed.Address != addr {
			fail("is not a valid email address")
		}
	case "phone":
		raw := fv.String()
		if raw == "" {
			return
		}
		num, err := phonenumbers.Parse(raw, "")
		if err != nil || !phonenumbers.IsValidNumber(num) {
			fail("is not a valid phone number")
			return
		}
		// canonicalize to E.164 so the stored form is uniform
		if fv.CanSet() {
			fv.SetString(phonenumbers.Format(num, phonenumbers.E164))
		}
	}
}

// fieldSize yields the magnitude min/max compare against: rune length for
// strings, element count for slices and maps, the value itself for numbers.
func fieldSize(fv reflect.Value) (float64, bool) {
	switch fv.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(fv.String())), true
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(fv.Len()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(fv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(fv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return fv.Float(), true
	default:
		return 0, false
	}
}

func hasRule(rules []rule, kind string) bool {
	for _, r := range rules {
		if r.kind == kind {
			return true
		}
	}
	return false
}
