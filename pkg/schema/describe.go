package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

const describeLogPrefix = "schema:describe"

// Describable is the contract every capability and nested payload type
// implements: a pure, static description of its purpose.
type Describable interface {
	Description() string
}

// Descriptor is the JSON-serializable description tree of a capability:
// its description plus per-field type, description and optional default.
type Descriptor struct {
	Description string               `json:"description"`
	Fields      map[string]FieldInfo `json:"fields"`
}

// FieldInfo describes one declared field. Default is emitted only when the
// field declares one, which distinguishes "no default" from "defaults to
// null". A field whose type is itself describable carries the nested
// descriptor's fields instead of a scalar type name.
type FieldInfo struct {
	Type        string
	Description string
	HasDefault  bool
	Default     json.RawMessage
	Fields      map[string]FieldInfo
}

// MarshalJSON emits {type, description, fields?, default?}; the default key
// is present exactly when the field declares one.
func (f FieldInfo) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type":        f.Type,
		"description": f.Description,
	}
	if len(f.Fields) > 0 {
		out["fields"] = f.Fields
	}
	if f.HasDefault {
		var def any
		if err := json.Unmarshal(f.Default, &def); err != nil {
			return nil, fmt.Errorf("%s - invalid default %q: %w", describeLogPrefix, string(f.Default), err)
		}
		out["default"] = def
	}
	return json.Marshal(out)
}

var (
	describableType = reflect.TypeOf((*Describable)(nil)).Elem()
	timeType        = reflect.TypeOf(time.Time{})
	rawMessageType  = reflect.TypeOf(json.RawMessage{})
)

// Describe reflects over v's declared fields and produces its descriptor
// tree. Fields whose type is itself describable recurse; self-referential
// types terminate with a leaf entry instead of recursing forever. Pure and
// deterministic for identical input types.
func Describe(v Describable) (Descriptor, error) {
	t := deref(reflect.TypeOf(v))
	fields, err := describeFields(t, map[reflect.Type]bool{t: true})
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Description: v.Description(), Fields: fields}, nil
}

func describeFields(t reflect.Type, visiting map[reflect.Type]bool) (map[string]FieldInfo, error) {
	specs, err := specsFor(t)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]FieldInfo, len(specs))
	for _, spec := range specs {
		ft := deref(spec.typ)

		if nested, ok := describableValue(ft); ok {
			info := FieldInfo{Type: ft.Name(), Description: nested.Description()}
			if !visiting[ft] {
				visiting[ft] = true
				nestedFields, err := describeFields(ft, visiting)
				delete(visiting, ft)
				if err != nil {
					return nil, err
				}
				info.Fields = nestedFields
			}
			fields[spec.name] = info
			continue
		}

		fields[spec.name] = FieldInfo{
			Type:        typeName(ft),
			Description: spec.description,
			HasDefault:  spec.hasDefault,
			Default:     spec.defaultRaw,
		}
	}
	return fields, nil
}

// describableValue returns a zero value of t as a Describable when t (or a
// pointer to it) implements the contract. Only struct types qualify; scalars
// and time.Time stay leaf fields.
func describableValue(t reflect.Type) (Describable, bool) {
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, false
	}
	if t.Implements(describableType) {
		return reflect.Zero(t).Interface().(Describable), true
	}
	if reflect.PointerTo(t).Implements(describableType) {
		return reflect.New(t).Interface().(Describable), true
	}
	return nil, false
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// typeName maps a Go type onto the wire schema vocabulary.
func typeName(t reflect.Type) string {
	if t == timeType {
		return "string"
	}
	if t == rawMessageType {
		return "object"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct, reflect.Interface:
		return "object"
	default:
		return t.Kind().String()
	}
}
