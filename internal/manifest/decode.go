package manifest

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeSettings copies settings attributes into the fields of target, a
// pointer to a struct with `cty:"name"` tags. Attributes absent from the
// settings object leave the corresponding field untouched, so factories
// can pre-fill defaults before decoding.
func DecodeSettings(settings cty.Value, target any) error {
	if settings == cty.NilVal || settings.IsNull() {
		return nil
	}
	if !settings.Type().IsObjectType() {
		return fmt.Errorf("settings must be an object, got %s", settings.Type().FriendlyName())
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to struct, got %T", target)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("cty")
		if name == "" || !field.IsExported() {
			continue
		}
		if !settings.Type().HasAttribute(name) {
			continue
		}
		attr := settings.GetAttr(name)
		if attr.IsNull() {
			continue
		}
		if err := gocty.FromCtyValue(attr, rv.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("setting %q: %w", name, err)
		}
	}
	return nil
}
