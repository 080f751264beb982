package util

import (
	"errors"
	"fmt"
	"reflect"
)

// assign stores v into the variable dst points to. Slices are converted
// element by element, other values only need to be convertible.
func assign(dst reflect.Value, attr string, v any) error {
	target := dst.Elem()
	rv := reflect.ValueOf(v)

	if target.Kind() == reflect.Slice {
		items, ok := v.([]any)
		if !ok {
			return ErrInvalid{attr}
		}
		eType := target.Type().Elem()
		out := reflect.MakeSlice(target.Type(), 0, len(items))
		for _, item := range items {
			iv := reflect.ValueOf(item)
			if !iv.IsValid() || iv.Kind() != eType.Kind() || !iv.CanConvert(eType) {
				return ErrInvalid{attr}
			}
			out = reflect.Append(out, iv.Convert(eType))
		}
		target.Set(out)
		return nil
	}

	if !rv.IsValid() || !sameFamily(rv.Kind(), target.Kind()) || !rv.CanConvert(target.Type()) {
		return ErrInvalid{attr}
	}
	if isInt(rv.Kind()) && target.CanInt() && target.OverflowInt(rv.Int()) {
		return ErrInvalid{attr}
	}
	if isInt(rv.Kind()) && target.CanUint() && (rv.Int() < 0 || target.OverflowUint(uint64(rv.Int()))) {
		return ErrInvalid{attr}
	}
	target.Set(rv.Convert(target.Type()))
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

// sameFamily keeps yaml integers out of strings and bools.
func sameFamily(a, b reflect.Kind) bool {
	if (isInt(a) || isUint(a)) && (isInt(b) || isUint(b)) {
		return true
	}
	return a == b
}

// MustHave fills every pointer in attrList from m. A missing key is
// ErrLost, a value of the wrong type is ErrInvalid.
func MustHave(m map[string]any, attrList map[string]any) error {
	for key, value := range attrList {
		v, exist := m[key]
		if !exist {
			return ErrLost{key}
		}
		if err := assign(reflect.ValueOf(value), key, v); err != nil {
			return err
		}
	}
	return nil
}

// MayHave is MustHave for optional keys: missing ones are set to zero.
func MayHave(m map[string]any, attrList map[string]any) error {
	for key, value := range attrList {
		err := MustHave(m, map[string]any{key: value})
		if errors.Is(err, ErrLost{Attr: key}) {
			reflect.ValueOf(value).Elem().SetZero()
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type ErrLost struct {
	Attr string
}

func (e ErrLost) Error() string {
	return fmt.Sprintf("config: lost attribute '%v'", e.Attr)
}

func (e ErrLost) Is(err error) bool {
	t, ok := err.(ErrLost)
	return ok && e.Attr == t.Attr
}

type ErrInvalid struct {
	Attr string
}

func (e ErrInvalid) Error() string {
	return fmt.Sprintf("config: invalid attribute '%v'", e.Attr)
}

func (e ErrInvalid) Is(err error) bool {
	t, ok := err.(ErrInvalid)
	return ok && e.Attr == t.Attr
}
