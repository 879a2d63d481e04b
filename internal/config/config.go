// Package config layers command-line flags, environment variables and a TOML
// file into one options struct.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/wavering/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "WAVERING_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills opts, a pointer to a struct, with precedence
// CLI flags > environment > TOML file. Fields are bound by their `toml`
// (dotted path) and `env` tags; the file path comes from a field named
// Config. Flags the user set on cmd are never overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse TOML config %s: %w", f.String(), err)
			}
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to read config %s: %w", f.String(), err)
		}
	}

	for i := range v.NumField() {
		field, sf := v.Field(i), t.Field(i)
		if !field.CanSet() || changed[flagName(sf.Name)] {
			continue
		}

		if path := sf.Tag.Get("toml"); path != "" && file != nil {
			if raw := lookup(file, path); raw != nil {
				if err := setValue(field, raw); err != nil {
					return fmt.Errorf("config %s: %w", path, err)
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if raw, ok := os.LookupEnv(EnvPrefix + key); ok && raw != "" {
				if err := setString(field, raw); err != nil {
					return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

// flagName converts a field name to its kebab-case flag, e.g. "SMTPHost" -> "smtp-host".
func flagName(field string) string {
	runes := []rune(field)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func lookup(data map[string]any, path string) any {
	cur := data
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur[parts[len(parts)-1]]
}

// setValue assigns a decoded TOML value.
func setValue(field reflect.Value, raw any) error {
	if field.Type() == durationType {
		switch x := raw.(type) {
		case string:
			return setString(field, x)
		case int64:
			field.SetInt(x * int64(time.Millisecond))
			return nil
		}
		return fmt.Errorf("cannot use %T as duration", raw)
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := raw.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int64:
		if i, ok := raw.(int64); ok {
			field.SetInt(i)
			return nil
		}
	case reflect.Uint64:
		if i, ok := raw.(int64); ok && i >= 0 {
			field.SetUint(uint64(i))
			return nil
		}
	case reflect.Float64:
		switch x := raw.(type) {
		case float64:
			field.SetFloat(x)
			return nil
		case int64:
			field.SetFloat(float64(x))
			return nil
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			break
		}
		if arr, ok := raw.([]any); ok {
			out := make([]string, 0, len(arr))
			for _, item := range arr {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("cannot use %T in string list", item)
				}
				out = append(out, s)
			}
			field.Set(reflect.ValueOf(out))
			return nil
		}
	}
	return fmt.Errorf("cannot use %T for %s field", raw, field.Kind())
}

// setString assigns an environment value.
func setString(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a TOML file. "level" and
// "format" are global; every other key is a per-module level. A missing file
// yields the defaults.
func LoadLoggingConfig(path string) (logging.Config, error) {
	cfg := logging.Config{Level: "info", Format: "text", Modules: map[string]string{}}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse logging config: %w", err)
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg, nil
}
