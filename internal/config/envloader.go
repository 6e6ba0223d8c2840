package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// envField is a settable struct field bound to an environment variable by
// its `env` tag.
type envField struct {
	name  string
	value reflect.Value
}

// LoadFromEnv overrides fields of cfg, a pointer to a struct, with the
// environment variables named by their `env` tags. Nested structs are
// walked. Every unparsable value is reported in one *MultiValidationError.
func LoadFromEnv(cfg any) error {
	return LoadFromLookup(cfg, os.LookupEnv)
}

// LoadFromLookup is LoadFromEnv with a custom variable source.
func LoadFromLookup(cfg any, lookup func(string) (string, bool)) error {
	var errs []ValidationError
	for _, f := range envFields(reflect.ValueOf(cfg), nil) {
		raw, ok := lookup(f.name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if err := parseInto(f.value, raw); err != nil {
			errs = append(errs, ValidationError{Field: f.name, Message: err.Error()})
		}
	}
	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

func envFields(v reflect.Value, out []envField) []envField {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			out = envFields(field, out)
			continue
		}
		if name := t.Field(i).Tag.Get("env"); name != "" {
			out = append(out, envField{name: name, value: field})
		}
	}
	return out
}

func parseInto(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not an integer", raw)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not an unsigned integer", raw)
		}
		field.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%q is not a boolean", raw)
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		x, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not a number", raw)
		}
		field.SetFloat(x)
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}
