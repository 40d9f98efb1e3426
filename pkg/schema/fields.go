// Package schema derives wire descriptors and field validation from one
// shared per-type metadata table, parsed once from struct tags. Describe and
// Validate read the same table, so the advertised schema and the enforced
// constraints cannot drift.
//
// Recognized tags:
//
//	json:"username"          wire name (fields tagged "-" are skipped)
//	desc:"The username"      human description emitted in descriptors
//	default:"Foo"            declared default; "null" declares a null default
//	constraints:"required,min=3,max=50,email"  validation rules
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

const logPrefix = "schema:fields"

// rule is a single parsed validation constraint.
type rule struct {
	kind string // "required", "min", "max", "email", "phone"
	num  float64
}

// fieldSpec is one row of the shared metadata table.
type fieldSpec struct {
	name        string // wire name from the json tag
	description string
	hasDefault  bool
	defaultRaw  json.RawMessage
	rules       []rule
	index       int
	typ         reflect.Type
}

var specCache sync.Map // reflect.Type -> []fieldSpec

// specsFor returns the metadata table for a struct type, building and caching
// it on first use.
func specsFor(t reflect.Type) ([]fieldSpec, error) {
	if cached, ok := specCache.Load(t); ok {
		return cached.([]fieldSpec), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s - %s is not a struct type", logPrefix, t)
	}

	var specs []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := wireName(f)
		if name == "" {
			continue
		}

		spec := fieldSpec{
			name:        name,
			description: f.Tag.Get("desc"),
			index:       i,
			typ:         f.Type,
		}
		if def, ok := f.Tag.Lookup("default"); ok {
			spec.hasDefault = true
			spec.defaultRaw = defaultJSON(def)
		}
		rules, err := parseConstraints(f.Tag.Get("constraints"))
		if err != nil {
			return nil, fmt.Errorf("%s - field %s.%s: %w", logPrefix, t.Name(), f.Name, err)
		}
		spec.rules = rules
		specs = append(specs, spec)
	}

	specCache.Store(t, specs)
	return specs, nil
}

// wireName resolves the field's wire name from its json tag; the Go name is
// used when no tag is present.
func wireName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

// defaultJSON interprets a default tag value as raw JSON when it parses as
// such, otherwise as a plain string literal.
func defaultJSON(def string) json.RawMessage {
	if json.Valid([]byte(def)) {
		return json.RawMessage(def)
	}
	quoted, _ := json.Marshal(def)
	return quoted
}

func parseConstraints(tag string) ([]rule, error) {
	if tag == "" {
		return nil, nil
	}
	var rules []rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, arg, hasArg := strings.Cut(part, "=")
		switch kind {
		case "required", "email", "phone":
			if hasArg {
				return nil, fmt.Errorf("constraint %q takes no argument", kind)
			}
			rules = append(rules, rule{kind: kind})
		case "min", "max":
			if !hasArg {
				return nil, fmt.Errorf("constraint %q requires an argument", kind)
			}
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, fmt.Errorf("constraint %q has invalid argument %q", kind, arg)
			}
			rules = append(rules, rule{kind: kind, num: n})
		default:
			return nil, fmt.Errorf("unknown constraint %q", kind)
		}
	}
	return rules, nil
}
