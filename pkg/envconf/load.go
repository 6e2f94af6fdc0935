// Package envconf fills configuration structs from environment variables.
//
// Fields are bound with tags:
//
//	Port    uint16        `env:"APP_PORT" envDefault:"8080"`
//	DSN     string        `env:"PG_DSN"`
//	Origins []string      `env:"CORS_ORIGINS" envDefault:"a.com,b.com"`
//
// A field without envDefault is required. Untagged struct fields (and
// pointers to structs) are loaded recursively. Supported kinds are strings,
// bools, ints, uints, floats, time.Duration, comma separated slices of
// those, pointers to them and any encoding.TextUnmarshaler.
package envconf

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingRequired = errors.New("missing required environment variable")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrInvalidTarget   = errors.New("destination must be a non-nil pointer to a struct")
)

// LookupFunc resolves a variable the way os.LookupEnv does.
type LookupFunc func(key string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// Load fills dst from the process environment. Every missing required
// variable is reported, not just the first.
func Load(dst any) error {
	return LoadFrom(os.LookupEnv, dst)
}

// LoadFrom fills dst using lookup instead of the process environment.
func LoadFrom(lookup LookupFunc, dst any) error {
	if dst == nil {
		return ErrInvalidTarget
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	return errors.Join(loadStruct(lookup, v.Elem())...)
}

func loadStruct(lookup LookupFunc, v reflect.Value) []error {
	var errs []error

	t := v.Type()
	for i := range v.NumField() {
		sf := t.Field(i)
		fv := v.Field(i)

		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("env")
		if tag == "-" {
			continue
		}

		if tag == "" {
			errs = append(errs, loadNested(lookup, sf, fv)...)
			continue
		}

		raw, ok := lookup(tag)
		if !ok {
			raw, ok = sf.Tag.Lookup("envDefault")
		}

		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s (field %q)", ErrMissingRequired, tag, sf.Name))
			continue
		}

		err := setValue(fv, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %q for field %q: %w", tag, sf.Name, err))
		}
	}

	return errs
}

// loadNested recurses into untagged structs. time.Duration is an int64, not a
// struct, so it never gets here.
func loadNested(lookup LookupFunc, sf reflect.StructField, fv reflect.Value) []error {
	switch {
	case fv.Kind() == reflect.Struct:
		return prefixed(sf.Name, loadStruct(lookup, fv))
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		return prefixed(sf.Name, loadStruct(lookup, fv.Elem()))
	default:
		return nil
	}
}

func prefixed(name string, errs []error) []error {
	for i, err := range errs {
		errs[i] = fmt.Errorf("%s: %w", name, err)
	}

	return errs
}

//nolint:cyclop
func setValue(fv reflect.Value, raw string) error {
	if !fv.CanSet() {
		return fmt.Errorf("field not settable: %w", ErrUnsupportedType)
	}

	if fv.CanAddr() {
		u, ok := fv.Addr().Interface().(encoding.TextUnmarshaler)
		if ok {
			err := u.UnmarshalText([]byte(raw))
			if err != nil {
				return fmt.Errorf("unmarshal text: %w", err)
			}

			return nil
		}
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}

			fv.SetInt(int64(d))

			return nil
		}

		i, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}

		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint: %w", err)
		}

		fv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}

		fv.SetFloat(f)
	case reflect.Slice:
		return setSlice(fv, raw)
	case reflect.Pointer:
		elem := reflect.New(fv.Type().Elem())

		err := setValue(elem.Elem(), raw)
		if err != nil {
			return fmt.Errorf("parse pointer: %w", err)
		}

		fv.Set(elem)
	default:
		return fmt.Errorf("%s: %w", fv.Kind(), ErrUnsupportedType)
	}

	return nil
}

func setSlice(fv reflect.Value, raw string) error {
	if fv.Type().Elem().Kind() == reflect.Slice {
		return fmt.Errorf("nested slice: %w", ErrUnsupportedType)
	}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}

	out := reflect.MakeSlice(fv.Type(), len(parts), len(parts))
	for i, p := range parts {
		err := setValue(out.Index(i), p)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	fv.Set(out)

	return nil
}
