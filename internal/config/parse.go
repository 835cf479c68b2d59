package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrRead indicates the config file could not be read.
	ErrRead = errors.New("config: read failed")
	// ErrParse indicates the config is not well-formed JSON or a field has the wrong type.
	ErrParse = errors.New("config: malformed")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError reports every field that failed semantic validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "config: invalid fields: " + strings.Join(parts, "; ")
}

// Parsed is the result of a tracked parse.
type Parsed struct {
	Config *ProjectConfig
	// Unknown holds top-level keys that ProjectConfig does not define,
	// sorted lexicographically.
	Unknown []string
}

// Load reads and fully validates the config at path.
func Load(path string) (*Parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return Parse(data)
}

// LoadSnapshot reads a locked snapshot without semantic validation. A forced
// lock may have stored a config that never passed validation, so consumers of
// the snapshot only require it to decode.
func LoadSnapshot(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return Decode(data)
}

// Decode unmarshals data into a ProjectConfig, ignoring unknown fields and
// skipping semantic validation. Keys match exactly: "Name" is an unknown
// field, not an alias of "name".
func Decode(data []byte) (*ProjectConfig, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return fromRaw(raw)
}

// Parse decodes data, records unknown top-level fields and validates the
// result. Unknown fields never fail the parse.
func Parse(data []byte) (*Parsed, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for key := range raw {
		if !knownFields[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	if err := validate(cfg, raw); err != nil {
		return nil, err
	}

	return &Parsed{Config: cfg, Unknown: unknown}, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: top-level value must be a JSON object", ErrParse)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return raw, nil
}

// fromRaw fills a ProjectConfig from the exact-case known keys of raw.
// encoding/json folds case when matching struct tags, so fields are decoded
// one by one instead of unmarshalling the whole object.
func fromRaw(raw map[string]json.RawMessage) (*ProjectConfig, error) {
	var cfg ProjectConfig
	targets := []struct {
		key string
		dst any
	}{
		{"name", &cfg.Name},
		{"version", &cfg.Version},
		{"authors", &cfg.Authors},
		{"epsilon", &cfg.Epsilon},
		{"assets", &cfg.Assets},
		{"plugins", &cfg.Plugins},
	}
	for _, t := range targets {
		v, ok := raw[t.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, t.dst); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrParse, t.key, err)
		}
	}
	return &cfg, nil
}

func validate(cfg *ProjectConfig, raw map[string]json.RawMessage) error {
	var fields []FieldError
	present := func(key string) bool {
		v, ok := raw[key]
		return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
	}

	if !present("name") {
		fields = append(fields, FieldError{"name", "required"})
	} else if strings.TrimSpace(cfg.Name) == "" {
		fields = append(fields, FieldError{"name", "must not be empty"})
	}

	if !present("version") {
		fields = append(fields, FieldError{"version", "required"})
	} else if !ValidVersion(cfg.Version) {
		fields = append(fields, FieldError{"version", fmt.Sprintf("%q is not a semantic version (MAJOR.MINOR.PATCH)", cfg.Version)})
	}

	if !present("authors") {
		fields = append(fields, FieldError{"authors", "required"})
	} else {
		for i, a := range cfg.Authors {
			if strings.TrimSpace(a) == "" {
				fields = append(fields, FieldError{fmt.Sprintf("authors[%d]", i), "must not be empty"})
			}
		}
	}

	if cfg.Epsilon != nil {
		e := *cfg.Epsilon
		if math.IsNaN(e) || math.IsInf(e, 0) || e <= 0 {
			fields = append(fields, FieldError{"epsilon", "must be a positive number"})
		}
	}

	for i, a := range cfg.Assets {
		if strings.TrimSpace(a) == "" {
			fields = append(fields, FieldError{fmt.Sprintf("assets[%d]", i), "must not be empty"})
		}
	}
	for i, p := range cfg.Plugins {
		if strings.TrimSpace(p) == "" {
			fields = append(fields, FieldError{fmt.Sprintf("plugins[%d]", i), "must not be empty"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidVersion reports whether v is a full semantic version without a
// leading "v", e.g. "1.2.3" or "1.0.0-rc.1+build.5".
func ValidVersion(v string) bool {
	if v == "" || strings.HasPrefix(v, "v") {
		return false
	}
	if !semver.IsValid("v" + v) {
		return false
	}
	core := v
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	// semver.IsValid accepts the "v1" and "v1.2" shorthands.
	return strings.Count(core, ".") == 2
}
