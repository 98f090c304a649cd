package config

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// AttributeMap is a loosely typed set of settings, as read from JSON or the command line.
type AttributeMap map[string]interface{}

// Has returns whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the attribute as a string, or def if it is not set.
func (am AttributeMap) String(name, def string) (string, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	s, err := cast.ToStringE(x)
	if err != nil {
		return def, errors.Wrapf(err, "attribute %q", name)
	}
	return s, nil
}

// Float64 returns the attribute as a float64, or def if it is not set.
func (am AttributeMap) Float64(name string, def float64) (float64, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	f, err := cast.ToFloat64E(x)
	if err != nil {
		return def, errors.Wrapf(err, "attribute %q", name)
	}
	return f, nil
}

// Bool returns the attribute as a bool, or def if it is not set.
func (am AttributeMap) Bool(name string, def bool) (bool, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	b, err := cast.ToBoolE(x)
	if err != nil {
		return def, errors.Wrapf(err, "attribute %q", name)
	}
	return b, nil
}

// Duration returns the attribute as a duration, or def if it is not set. Numbers are seconds.
func (am AttributeMap) Duration(name string, def time.Duration) (time.Duration, error) {
	x, has := am[name]
	if !has {
		return def, nil
	}
	d, err := toDuration(x)
	if err != nil {
		return def, errors.Wrapf(err, "attribute %q", name)
	}
	return d, nil
}

// ParseAttributes turns key=value pairs into an AttributeMap. Dotted keys nest, so
// "camera.height=11" sets height inside camera. Values stay strings.
func ParseAttributes(pairs []string) (AttributeMap, error) {
	attrs := AttributeMap{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("expected key=value, got %q", pair)
		}
		parts := strings.Split(key, ".")
		node := attrs
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(AttributeMap)
			if !ok {
				if node.Has(part) {
					return nil, errors.Errorf("%q is both a value and a section", part)
				}
				child = AttributeMap{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return attrs, nil
}

// Apply decodes attrs over cfg. Attributes that are absent leave cfg unchanged. Values are weakly
// typed; durations accept "1.5s" or a number of seconds.
func Apply(cfg *Config, attrs AttributeMap) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           cfg,
		Metadata:         &md,
		DecodeHook:       mapstructure.DecodeHookFuncType(durationHook),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return errors.Errorf("unknown config attributes %s", strings.Join(md.Unused, ", "))
	}
	return nil
}

// FromAttributes decodes attrs over the defaults and validates the result.
func FromAttributes(attrs AttributeMap) (*Config, error) {
	cfg := Default()
	if err := Apply(cfg, attrs); err != nil {
		return nil, err
	}
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func durationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	return toDuration(data)
}

func toDuration(x interface{}) (time.Duration, error) {
	if s, ok := x.(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}
	secs, err := cast.ToFloat64E(x)
	if err != nil {
		return 0, errors.Errorf("cannot use %v as a duration", x)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
