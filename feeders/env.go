// Package feeders provides configuration feeders for reading data from
// environment variables, YAML files and TOML files.
package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// LookupFunc resolves an environment variable. It has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvFeeder populates struct fields tagged with `env:"NAME"` from environment
// variables named PREFIX_NAME.
type EnvFeeder struct {
	Prefix string
	Lookup LookupFunc
}

// NewEnvFeeder creates an EnvFeeder reading the process environment
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, Lookup: os.LookupEnv}
}

// VarName returns the environment variable name used for the given tag
func (f EnvFeeder) VarName(tag string) string {
	name := strings.ToUpper(tag)
	if f.Prefix != "" {
		name = strings.ToUpper(f.Prefix) + "_" + name
	}
	return name
}

// Feed reads environment variables and populates the provided structure
func (f EnvFeeder) Feed(structure any) error {
	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrEnvInvalidStructure, structure)
	}

	lookup := f.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return f.fillStruct(rv.Elem(), lookup)
}

func (f EnvFeeder) fillStruct(rv reflect.Value, lookup LookupFunc) error {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)

		if field.Kind() == reflect.Struct && fieldType.Type != durationType {
			if err := f.fillStruct(field, lookup); err != nil {
				return err
			}
			continue
		}

		tag, ok := fieldType.Tag.Lookup("env")
		if !ok || tag == "" || tag == "-" {
			continue
		}

		name := f.VarName(tag)
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}

		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("error in field '%s' (%s): %w", fieldType.Name, name, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEnvConversion, err)
		}
		field.SetInt(int64(d))
		return nil
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))
		return nil
	}

	converted, err := cast.FromType(strings.TrimSpace(raw), field.Type())
	if err != nil {
		return fmt.Errorf("%w: cannot convert value to type %v: %w", ErrEnvConversion, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
