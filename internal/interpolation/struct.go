package interpolation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/props"
)

// TagName is the struct tag that opts a field into interpolation.
const TagName = "interpolate"

// InterpolateStruct expands tokens in fields tagged `interpolate:"yes"`, in place.
// String fields, string maps, maps and slices of structs, string slices, nested structs
// and pointers to structs are handled. Interface values are rejected; call this from the
// concrete type instead.
func InterpolateStruct(v any, lookup props.Table, opts ...Option) error {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Interface {
		return fmt.Errorf(
			"InterpolateStruct cannot handle interface types, call from concrete type instead",
		)
	}

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct or pointer to struct, got %T", v)
	}

	o := newOptions(opts)
	return o.walkStruct(val, lookup)
}

func (o *options) walkStruct(val reflect.Value, lookup props.Table) error {
	typ := val.Type()
	var errs []error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		name := typ.Field(i).Name
		if !field.CanSet() || strings.ToLower(typ.Field(i).Tag.Get(TagName)) != "yes" {
			continue
		}
		if err := o.walkValue(field, lookup); err != nil {
			errs = append(errs, fmt.Errorf("field %s%w", name, err))
		}
	}
	return errors.Join(errs...)
}

// walkValue expands one tagged value. Errors are prefixed with the element path
// below the field, starting with ": " when there is none.
func (o *options) walkValue(v reflect.Value, lookup props.Table) error {
	switch v.Kind() {
	case reflect.String:
		if v.String() != "" {
			v.SetString(o.expand("", false, v.String(), lookup))
		}
	case reflect.Struct:
		if err := o.walkStruct(v, lookup); err != nil {
			return fmt.Errorf(": %w", err)
		}
	case reflect.Ptr:
		if v.IsNil() || v.Type().Elem().Kind() != reflect.Struct {
			return nil
		}
		if err := o.walkStruct(v.Elem(), lookup); err != nil {
			return fmt.Errorf(": %w", err)
		}
	case reflect.Map:
		return o.walkMap(v, lookup)
	case reflect.Slice:
		var errs []error
		for j := 0; j < v.Len(); j++ {
			if err := o.walkElem(v.Index(j), lookup); err != nil {
				errs = append(errs, fmt.Errorf("[%d]%w", j, err))
			}
		}
		return errors.Join(errs...)
	case reflect.Interface:
		return errors.New(": interface fields cannot be interpolated")
	}
	return nil
}

// walkElem handles slice and map elements, which never recurse into nested containers.
func (o *options) walkElem(v reflect.Value, lookup props.Table) error {
	switch v.Kind() {
	case reflect.String, reflect.Struct, reflect.Ptr:
		return o.walkValue(v, lookup)
	}
	return nil
}

func (o *options) walkMap(v reflect.Value, lookup props.Table) error {
	if v.IsNil() || v.Type().Key().Kind() != reflect.String {
		return nil
	}
	elemType := v.Type().Elem()
	var errs []error
	for _, key := range v.MapKeys() {
		switch elemType.Kind() {
		case reflect.String:
			expanded := o.expand("", false, v.MapIndex(key).String(), lookup)
			v.SetMapIndex(key, reflect.ValueOf(expanded).Convert(elemType))
		case reflect.Struct:
			// map elements are not addressable; walk a copy and store it back
			elem := reflect.New(elemType).Elem()
			elem.Set(v.MapIndex(key))
			if err := o.walkStruct(elem, lookup); err != nil {
				errs = append(errs, fmt.Errorf("[%s]: %w", key.String(), err))
				continue
			}
			v.SetMapIndex(key, elem)
		case reflect.Ptr:
			if err := o.walkValue(v.MapIndex(key), lookup); err != nil {
				errs = append(errs, fmt.Errorf("[%s]%w", key.String(), err))
			}
		}
	}
	return errors.Join(errs...)
}
