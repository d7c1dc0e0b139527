package matcher

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag read by Decode and written by the generator.
const TagName = "rpc"

var stringSliceType = reflect.TypeOf([]string(nil))

// Decode populates a Params struct from a match result. The target must
// be a pointer to a struct whose fields carry `rpc:"name"` tags:
//
//	type Params struct {
//		ID   string   `rpc:"id"`
//		Slug []string `rpc:"slug,optional"`
//	}
//
// Absent optional catch-alls leave the field nil. Parameters missing from
// the result leave the field untouched.
func Decode(result *Result, target any) error {
	if result == nil || target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get(TagName)
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		optional := opts == "optional"

		param, ok := result.Params[name]
		if !ok {
			continue
		}

		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if err := setParam(fieldValue, param, optional); err != nil {
			return fmt.Errorf("decoding param %q: %w", name, err)
		}
	}

	return nil
}

func setParam(field reflect.Value, param Param, optional bool) error {
	switch param.Kind {
	case ParamString:
		if field.Kind() != reflect.String {
			return fmt.Errorf("string value for %s field", field.Type())
		}
		field.SetString(param.Value)

	case ParamList:
		if field.Type() != stringSliceType {
			return fmt.Errorf("list value for %s field", field.Type())
		}
		field.Set(reflect.ValueOf(append([]string{}, param.Values...)))

	case ParamAbsent:
		if !optional {
			return fmt.Errorf("absent value for required field")
		}
		field.Set(reflect.Zero(field.Type()))

	default:
		return fmt.Errorf("unsupported param kind %d", param.Kind)
	}
	return nil
}
