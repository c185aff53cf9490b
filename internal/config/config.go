package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/brolyroly007/contentforge/internal/logging"
	"github.com/brolyroly007/contentforge/internal/suggest"
)

const (
	// EnvPrefix is prepended to the upper-cased field name to form override variables.
	EnvPrefix = "CONTENTFORGE_"
	// HomeEnv relocates the whole contentforge directory (config, logs, history, packs).
	HomeEnv = "CONTENTFORGE_HOME"
	// FileName is the persisted document inside the home directory.
	FileName = "config.toml"

	SourceEnv    = "env"
	SourceConfig = "config"

	fileHeader = "# contentforge configuration. Only values that differ from the defaults are stored.\n"
)

// Output formats accepted by default_format and --format.
var Formats = []string{"markdown", "plain", "json"}

// Config is the effective configuration: defaults, then the TOML document,
// then CONTENTFORGE_* environment variables.
type Config struct {
	OpenAIAPIKey       string  `toml:"openai_api_key"`
	GeminiAPIKey       string  `toml:"gemini_api_key"`
	OpenAIModel        string  `toml:"openai_model"`
	GeminiModel        string  `toml:"gemini_model"`
	OllamaModel        string  `toml:"ollama_model"`
	OpenAIBaseURL      string  `toml:"openai_base_url"`
	GeminiBaseURL      string  `toml:"gemini_base_url"`
	OllamaBaseURL      string  `toml:"ollama_base_url"`
	DefaultProvider    string  `toml:"default_provider"`
	DefaultFormat      string  `toml:"default_format"`
	DefaultTemperature float64 `toml:"default_temperature"`
	DefaultMaxTokens   int     `toml:"default_max_tokens"`
	Stream             bool    `toml:"stream"`
	RequestTimeout     int     `toml:"request_timeout"`
	SaveHistory        bool    `toml:"save_history"`

	// EnvOverrides holds the names of fields whose value came from the environment.
	EnvOverrides map[string]bool `toml:"-"`

	// fileValues keeps what the document held for each key it mentioned, so a
	// save never replaces a file value with an env-sourced one.
	fileValues map[string]any
}

var secretKeys = map[string]bool{
	"openai_api_key": true,
	"gemini_api_key": true,
}

// fields maps key -> struct field index, in declaration order.
var (
	fieldKeys  []string
	fieldIndex = map[string]int{}
)

func init() {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag == "" || tag == "-" || !t.Field(i).IsExported() {
			continue
		}
		fieldKeys = append(fieldKeys, tag)
		fieldIndex[tag] = i
	}
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		OpenAIModel:        "gpt-4o-mini",
		GeminiModel:        "gemini-2.0-flash",
		OllamaModel:        "llama3.2",
		OpenAIBaseURL:      "https://api.openai.com/v1",
		GeminiBaseURL:      "https://generativelanguage.googleapis.com/v1beta",
		OllamaBaseURL:      "http://localhost:11434",
		DefaultProvider:    "openai",
		DefaultFormat:      "markdown",
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   2000,
		Stream:             true,
		RequestTimeout:     120,
		SaveHistory:        false,
		EnvOverrides:       map[string]bool{},
		fileValues:         map[string]any{},
	}
}

// Dir returns the contentforge home directory.
func Dir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".contentforge"
	}
	return filepath.Join(home, ".contentforge")
}

// Path returns the location of the persisted document.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

// Keys lists the declared field names in declaration order.
func Keys() []string {
	return append([]string(nil), fieldKeys...)
}

// SortedKeys lists the declared field names alphabetically.
func SortedKeys() []string {
	keys := Keys()
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return secretKeys[key]
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ErrUnknownKey is matched by UnknownKeyError.
var ErrUnknownKey = errors.New("unknown config key")

// UnknownKeyError is returned when a key is not a declared field.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	valid := SortedKeys()
	return fmt.Sprintf("Unknown config key: %q. Valid keys: %s.%s",
		e.Key, strings.Join(valid, ", "), suggest.Hint(e.Key, valid))
}

func (e *UnknownKeyError) Is(target error) bool {
	return target == ErrUnknownKey
}

// Load builds the effective configuration from Path().
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom builds the effective configuration from the document at path.
// A missing document is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg, err := readDocument(path, true)
	if err != nil {
		return nil, err
	}

	for _, key := range fieldKeys {
		raw, ok := os.LookupEnv(EnvName(key))
		if !ok || (raw == "" && !cfg.isString(key)) {
			continue
		}
		if err := cfg.Assign(key, raw); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvName(key), err)
		}
		cfg.EnvOverrides[key] = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDocument layers the document at path over the defaults. In strict mode
// a value that does not coerce is an error; otherwise it is logged and the
// default kept.
func readDocument(path string, strict bool) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for key, raw := range doc {
		if _, ok := fieldIndex[key]; !ok {
			continue
		}
		if err := cfg.Assign(key, fmt.Sprint(raw)); err != nil {
			if strict {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
			logging.ErrorLog("config %s: dropping %s: %v", path, key, err)
			continue
		}
		cfg.fileValues[key] = cfg.value(key)
	}
	return cfg, nil
}

// Save writes cfg to Path().
func Save(cfg *Config) error {
	return SaveTo(cfg, Path())
}

// SaveTo replaces the document at path with every non-default, non-env value.
func SaveTo(cfg *Config, path string) error {
	defaults := Default()
	doc := map[string]any{}
	for _, key := range fieldKeys {
		val := cfg.value(key)
		if cfg.EnvOverrides[key] {
			fileVal, ok := cfg.fileValues[key]
			if !ok {
				continue
			}
			val = fileVal
		}
		if val != defaults.value(key) {
			doc[key] = val
		}
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Set assigns key in the effective configuration and persists it immediately.
func Set(key, value string) (*Config, error) {
	return SetIn(Path(), key, value)
}

// SetIn is Set against an explicit document path. It works from the document
// alone, without environment overrides, and checks only key, so a set can
// repair a document that Load rejects.
func SetIn(path, key, value string) (*Config, error) {
	if _, ok := fieldIndex[key]; !ok {
		return nil, &UnknownKeyError{Key: key}
	}
	cfg, err := readDocument(path, false)
	if err != nil {
		return nil, err
	}
	if err := cfg.Assign(key, value); err != nil {
		return nil, err
	}
	if err := cfg.check(key); err != nil {
		return nil, err
	}
	cfg.fileValues[key] = cfg.value(key)
	if err := SaveTo(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Assign coerces raw to the declared type of key and stores it in memory.
func (c *Config) Assign(key, raw string) error {
	idx, ok := fieldIndex[key]
	if !ok {
		return &UnknownKeyError{Key: key}
	}
	field := reflect.ValueOf(c).Elem().Field(idx)
	raw = strings.TrimSpace(raw)
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q is not a number", key, raw)
		}
		field.SetFloat(f)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || f != float64(int(f)) {
				return fmt.Errorf("invalid value for %s: %q is not an integer", key, raw)
			}
			n = int(f)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		field.SetBool(parseBool(raw))
	default:
		return fmt.Errorf("unsupported field type for %s", key)
	}
	return nil
}

// Get returns the current value of key.
func (c *Config) Get(key string) (any, error) {
	if _, ok := fieldIndex[key]; !ok {
		return nil, &UnknownKeyError{Key: key}
	}
	return c.value(key), nil
}

// Display returns the value of key formatted for display.
func (c *Config) Display(key string) string {
	v, err := c.Get(key)
	if err != nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Source reports where the value of key came from.
func (c *Config) Source(key string) string {
	if c.EnvOverrides[key] {
		return SourceEnv
	}
	return SourceConfig
}

// Timeout is the HTTP request timeout for provider calls.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ModelFor returns the configured default model for a provider.
func (c *Config) ModelFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return c.OpenAIModel
	case "gemini":
		return c.GeminiModel
	case "ollama":
		return c.OllamaModel
	}
	return ""
}

// Mask hides secret values for display: the first 7 and last 4 characters of
// long secrets, a fixed marker otherwise. Non-secret keys pass through.
func Mask(key, value string) string {
	if !IsSecret(key) {
		return value
	}
	if r := []rune(value); len(r) > 14 {
		return string(r[:7]) + "..." + string(r[len(r)-4:])
	}
	return "***"
}

func (c *Config) value(key string) any {
	return reflect.ValueOf(c).Elem().Field(fieldIndex[key]).Interface()
}

func (c Config) validate() error {
	for _, key := range fieldKeys {
		if err := c.check(key); err != nil {
			return err
		}
	}
	return nil
}

// check applies the range rule for key, if it has one.
func (c Config) check(key string) error {
	switch key {
	case "default_temperature":
		if c.DefaultTemperature < 0 || c.DefaultTemperature > 2.0 {
			return fmt.Errorf("default_temperature must be between 0 and 2.0 (got %g)", c.DefaultTemperature)
		}
	case "default_max_tokens":
		if c.DefaultMaxTokens <= 0 {
			return fmt.Errorf("default_max_tokens must be positive (got %d)", c.DefaultMaxTokens)
		}
	case "request_timeout":
		if c.RequestTimeout <= 0 || c.RequestTimeout > 600 {
			return fmt.Errorf("request_timeout must be between 1 and 600 seconds (got %d)", c.RequestTimeout)
		}
	case "default_format":
		if !ValidFormat(c.DefaultFormat) {
			return fmt.Errorf("default_format must be one of %s (got %q)", strings.Join(Formats, ", "), c.DefaultFormat)
		}
	}
	return nil
}

func (c *Config) isString(key string) bool {
	return reflect.ValueOf(c).Elem().Field(fieldIndex[key]).Kind() == reflect.String
}

// ValidFormat reports whether f is a known output format.
func ValidFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	}
	return false
}
