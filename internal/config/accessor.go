package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Sections returns the top-level config section names in file order.
func Sections() []string {
	t := reflect.TypeOf(Config{})
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, jsonName(t.Field(i)))
	}
	return names
}

// GetByPath retrieves a config value by dot-notation path (e.g. "notifier.channelId").
// A bare section name returns the whole section.
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses value into the type of the field at path. Sections and
// unknown keys are rejected rather than written into the file.
func SetByPath(cfg *Config, path string, value any) error {
	v, err := lookup(cfg, path)
	if err != nil {
		return err
	}
	if v.Kind() == reflect.Struct {
		return fmt.Errorf("%s is a section; set one of its keys instead", path)
	}

	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("%s expects an integer, got %q", path, s)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%s expects a number, got %q", path, s)
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", path, s)
		}
		v.SetBool(b)
	case reflect.Slice:
		// channel lists are written as "123, 456"
		list := FlexStringList{}
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		v.Set(reflect.ValueOf(list).Convert(v.Type()))
	default:
		return fmt.Errorf("%s has unsupported type %s", path, v.Type())
	}
	return nil
}

// lookup walks cfg along path, one json name per step, so a path is always
// rooted at one of the Config sections (e.g. "collector.channelIds").
func lookup(cfg *Config, path string) (reflect.Value, error) {
	if strings.TrimSpace(path) == "" {
		return reflect.Value{}, fmt.Errorf("empty config path")
	}
	v := reflect.ValueOf(cfg).Elem()
	parts := strings.Split(path, ".")
	for i, name := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%s is not a section", strings.Join(parts[:i], "."))
		}
		f, ok := fieldByName(v, name)
		if !ok {
			if i == 0 {
				return reflect.Value{}, fmt.Errorf("unknown section %q (known: %s)", name, strings.Join(Sections(), ", "))
			}
			return reflect.Value{}, fmt.Errorf("key not found: %s (known in %s: %s)",
				path, strings.Join(parts[:i], "."), strings.Join(keysOf(v.Type()), ", "))
		}
		v = f
	}
	return v, nil
}

func fieldByName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func keysOf(t reflect.Type) []string {
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, jsonName(t.Field(i)))
	}
	return keys
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg // Return original on marshal error
	}
	var copy Config
	if err := json.Unmarshal(data, &copy); err != nil {
		return cfg
	}

	copy.LLM.APIKey = maskString(copy.LLM.APIKey)
	copy.Notifier.Token = maskString(copy.Notifier.Token)
	copy.Collector.Token = maskString(copy.Collector.Token)
	copy.Store.DSN = maskDSN(copy.Store.DSN)

	return &copy
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

var dsnPasswordPattern = regexp.MustCompile(`(?i)(password=)('[^']*'|\S+)`)

// maskDSN hides the password in URL and key=value connection strings.
func maskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "***")
				return u.String()
			}
		}
		return dsn
	}
	return dsnPasswordPattern.ReplaceAllString(dsn, "${1}***")
}


// ListPaths returns every settable path with its current value, including
// keys that are omitted from the saved file while empty.
func ListPaths(cfg *Config) map[string]any {
	result := make(map[string]any)
	collectPaths("", reflect.ValueOf(cfg).Elem(), result)
	return result
}

func collectPaths(prefix string, v reflect.Value, result map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		path := jsonName(t.Field(i))
		if prefix != "" {
			path = prefix + "." + path
		}
		if f := v.Field(i); f.Kind() == reflect.Struct {
			collectPaths(path, f, result)
		} else {
			result[path] = f.Interface()
		}
	}
}

// SortedPaths returns the keys of ListPaths in lexical order.
func SortedPaths(cfg *Config) []string {
	paths := ListPaths(cfg)
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
