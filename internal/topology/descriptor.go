package topology

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"apphost/internal/models"
)

// Option keys understood by the database kind.
const (
	OptEmulated     = "emulated"
	OptPreview      = "preview"
	OptDataVolume   = "dataVolume"
	OptDataExplorer = "dataExplorer"
	OptImage        = "image"
	OptPort         = "port"
	OptAccountKey   = "accountKey"
	OptEndpoint     = "endpoint"
	OptDriver       = "driver"
)

// Option keys understood by the process kind. OptPort is shared.
const (
	OptCommand = "command"
	OptArgs    = "args"
	OptWorkDir = "workDir"
	OptPortEnv = "portEnv"
	OptEnv     = "env"
	OptScheme  = "scheme"
)

type optionType int

const (
	optBool optionType = iota
	optString
	optInt
	optStringList
	optStringMap
)

func (t optionType) String() string {
	switch t {
	case optBool:
		return "bool"
	case optString:
		return "string"
	case optInt:
		return "int"
	case optStringList:
		return "string list"
	case optStringMap:
		return "string map"
	}
	return "unknown"
}

var schemas = map[models.ResourceKind]map[string]optionType{
	models.KindDatabase: {
		OptEmulated:     optBool,
		OptPreview:      optBool,
		OptDataVolume:   optString,
		OptDataExplorer: optBool,
		OptImage:        optString,
		OptPort:         optInt,
		OptAccountKey:   optString,
		OptEndpoint:     optString,
		OptDriver:       optString,
	},
	models.KindProcess: {
		OptCommand: optString,
		OptArgs:    optStringList,
		OptWorkDir: optString,
		OptPort:    optInt,
		OptPortEnv: optString,
		OptEnv:     optStringMap,
		OptScheme:  optString,
	},
}

var namePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

const maxNameLen = 63

// Descriptor is the immutable declaration of one resource.
type Descriptor struct {
	name    string
	kind    models.ResourceKind
	options map[string]any
}

/**
 * Create a validated resource descriptor
 * @param {string} name - Unique resource name, lower-case DNS label
 * @param {models.ResourceKind} kind - Resource kind, selects the option schema
 * @param {map[string]any} options - Options keyed by schema key
 * @returns {Descriptor} Immutable descriptor holding normalized option values
 * @returns {error} ValidationError when the name, kind or an option is invalid
 * @description
 * - Option values are normalized to bool, string, int, []string or map[string]string
 * - A dataVolume given as bool true becomes "<name>-data", false drops the key
 * - The options map is copied, later changes by the caller are not observed
 */
func NewDescriptor(name string, kind models.ResourceKind, options map[string]any) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, ValidationError{Resource: name, Field: "name", Reason: "must not be empty"}
	}
	if len(name) > maxNameLen || !namePattern.MatchString(name) {
		return Descriptor{}, ValidationError{Resource: name, Field: "name",
			Reason: "must be a lower-case DNS label of at most 63 characters"}
	}
	schema, ok := schemas[kind]
	if !ok {
		return Descriptor{}, ValidationError{Resource: name, Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}

	normalized := make(map[string]any, len(options))
	for _, key := range sortedKeys(options) {
		typ, known := schema[key]
		if !known {
			return Descriptor{}, ValidationError{Resource: name, Field: key,
				Reason: fmt.Sprintf("option not recognized for kind %s", kind)}
		}
		raw := options[key]
		if key == OptDataVolume {
			if b, isBool := raw.(bool); isBool {
				if b {
					normalized[key] = name + "-data"
				}
				continue
			}
		}
		v, err := normalize(typ, raw)
		if err != nil {
			return Descriptor{}, ValidationError{Resource: name, Field: key, Reason: err.Error()}
		}
		normalized[key] = v
	}
	if err := checkKindRules(name, kind, normalized); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{name: name, kind: kind, options: normalized}, nil
}

// MustDescriptor panics on validation error; intended for fixed topologies.
func MustDescriptor(name string, kind models.ResourceKind, options map[string]any) Descriptor {
	d, err := NewDescriptor(name, kind, options)
	if err != nil {
		panic(err)
	}
	return d
}

func checkKindRules(name string, kind models.ResourceKind, opts map[string]any) error {
	if p, ok := opts[OptPort].(int); ok && (p < 0 || p > 65535) {
		return ValidationError{Resource: name, Field: OptPort, Reason: "must be within 0..65535"}
	}
	switch kind {
	case models.KindProcess:
		if cmd, _ := opts[OptCommand].(string); cmd == "" {
			return ValidationError{Resource: name, Field: OptCommand, Reason: "required for process resources"}
		}
	case models.KindDatabase:
		driver, _ := opts[OptDriver].(string)
		switch driver {
		case "", "container", "external":
		default:
			return ValidationError{Resource: name, Field: OptDriver, Reason: fmt.Sprintf("unknown driver %q", driver)}
		}
		emulated, _ := opts[OptEmulated].(bool)
		endpoint, _ := opts[OptEndpoint].(string)
		if driver == "external" && endpoint == "" {
			return ValidationError{Resource: name, Field: OptEndpoint, Reason: "required for external databases"}
		}
		if !emulated && driver != "external" && endpoint == "" {
			return ValidationError{Resource: name, Field: OptEmulated,
				Reason: "a database must be emulated or declare an endpoint"}
		}
		if explorer, _ := opts[OptDataExplorer].(bool); explorer {
			if preview, _ := opts[OptPreview].(bool); !preview {
				return ValidationError{Resource: name, Field: OptDataExplorer,
					Reason: "only the preview emulator ships the data explorer, set preview"}
			}
		}
	}
	return nil
}

func normalize(typ optionType, raw any) (any, error) {
	mismatch := fmt.Errorf("expected %s, got %T", typ, raw)
	switch typ {
	case optBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case optString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case optInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case uint16:
			return int(v), nil
		case float64:
			// out-of-range conversions are implementation defined
			if v == math.Trunc(v) && v >= math.MinInt && v < math.MaxInt {
				return int(v), nil
			}
		}
	case optStringList:
		switch v := raw.(type) {
		case []string:
			return append([]string(nil), v...), nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, mismatch
				}
				out = append(out, s)
			}
			return out, nil
		}
	case optStringMap:
		switch v := raw.(type) {
		case map[string]string:
			out := make(map[string]string, len(v))
			for k, s := range v {
				out[k] = s
			}
			return out, nil
		case map[string]any:
			out := make(map[string]string, len(v))
			for k, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, mismatch
				}
				out[k] = s
			}
			return out, nil
		}
	}
	return nil, mismatch
}

func (d Descriptor) Name() string { return d.name }

func (d Descriptor) Kind() models.ResourceKind { return d.kind }

// Options returns a deep copy of the normalized options.
func (d Descriptor) Options() map[string]any {
	out := make(map[string]any, len(d.options))
	for k, v := range d.options {
		switch tv := v.(type) {
		case []string:
			out[k] = append([]string(nil), tv...)
		case map[string]string:
			out[k] = d.GetStringMapString(k)
		default:
			out[k] = v
		}
	}
	return out
}

func (d Descriptor) Has(key string) bool {
	_, ok := d.options[key]
	return ok
}

func (d Descriptor) GetBool(key string) bool {
	v, _ := d.options[key].(bool)
	return v
}

func (d Descriptor) GetString(key string) string {
	v, _ := d.options[key].(string)
	return v
}

func (d Descriptor) GetInt(key string) int {
	v, _ := d.options[key].(int)
	return v
}

func (d Descriptor) GetStringSlice(key string) []string {
	v, _ := d.options[key].([]string)
	return append([]string(nil), v...)
}

func (d Descriptor) GetStringMapString(key string) map[string]string {
	v, _ := d.options[key].(map[string]string)
	out := make(map[string]string, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
