// Package config holds the tunables shared by the memory manager, the
// generational collector, the request arena and the VM. It intentionally
// owns nothing beyond a typed key/value store: every subsystem that needs
// configuration takes a *Config explicitly, rather than reading package
// globals (see SPEC_FULL.md §A.3, "mutable global singletons").
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type valType int

const (
	typeUndefined valType = iota
	typeBool
	typeInt
	typeFloat
	typeString
)

func (t valType) String() string {
	return map[valType]string{
		typeUndefined: "undefined",
		typeBool:      "bool",
		typeInt:       "int",
		typeFloat:     "float",
		typeString:    "string",
	}[t]
}

type cfgVal struct {
	typ      valType
	asBool   bool
	asInt    int64
	asFloat  float64
	asString string
}

func (v *cfgVal) assignType(t valType) {
	if v.typ != t && v.typ != typeUndefined {
		panic(fmt.Sprintf("config: can't assign %q to existing %q value", t, v.typ))
	}
	v.typ = t
}

func (v *cfgVal) checkType(t valType) {
	if v.typ != t {
		panic(fmt.Sprintf("config: can't retrieve %q from %q value", t, v.typ))
	}
}

// Config is a flat, path-keyed, typed settings store.
type Config map[string]*cfgVal

// New returns an empty configuration with no defaults installed.
func New() *Config {
	c := make(Config)
	return &c
}

// NewDefault returns a configuration primed with every default this runtime
// core needs: nursery size, promotion age, GC thresholds, request arena
// capacity, PIC size, and the specialization observation threshold.
func NewDefault() *Config {
	c := New()
	c.SetInt("gc.nursery_bytes", 2<<20)       // 2 MiB
	c.SetInt("gc.promotion_age", 2)
	c.SetFloat("gc.minor_threshold", 0.9)
	c.SetFloat("gc.major_threshold", 0.7)
	c.SetFloat("gc.overhead_high", 0.10)
	c.SetFloat("gc.overhead_low", 0.02)
	c.SetFloat("gc.threshold_min", 0.5)
	c.SetFloat("gc.threshold_max", 0.95)
	c.SetInt("gc.card_bytes", 512)
	c.SetInt("gc.incremental_step_objects", 64)
	c.SetInt("memory.large_object_bytes", 8<<10) // 8 KiB
	c.SetInt("arena.default_bytes", 64<<10)      // 64 KiB
	c.SetInt("feedback.pic_capacity", 4)
	c.SetInt("feedback.megamorphic_threshold", 4)
	c.SetInt("feedback.specialize_after", 100)
	c.SetBool("debug.refcount_checks", false)
	c.SetInt("vm.max_stack_values", 1<<16)
	return c
}

func (c *Config) ensure(path string) *cfgVal {
	if _, ok := (*c)[path]; !ok {
		(*c)[path] = &cfgVal{}
	}
	return (*c)[path]
}

func (c *Config) SetBool(path string, v bool) {
	val := c.ensure(path)
	val.assignType(typeBool)
	val.asBool = v
}

func (c *Config) SetInt(path string, v int64) {
	val := c.ensure(path)
	val.assignType(typeInt)
	val.asInt = v
}

func (c *Config) SetFloat(path string, v float64) {
	val := c.ensure(path)
	val.assignType(typeFloat)
	val.asFloat = v
}

func (c *Config) SetString(path string, v string) {
	val := c.ensure(path)
	val.assignType(typeString)
	val.asString = v
}

func (c *Config) GetBool(path string) bool {
	val, ok := (*c)[path]
	if !ok {
		panic(fmt.Sprintf("config: bool setting %q does not exist", path))
	}
	val.checkType(typeBool)
	return val.asBool
}

func (c *Config) GetInt(path string) int64 {
	val, ok := (*c)[path]
	if !ok {
		panic(fmt.Sprintf("config: int setting %q does not exist", path))
	}
	val.checkType(typeInt)
	return val.asInt
}

func (c *Config) GetFloat(path string) float64 {
	val, ok := (*c)[path]
	if !ok {
		panic(fmt.Sprintf("config: float setting %q does not exist", path))
	}
	val.checkType(typeFloat)
	return val.asFloat
}

func (c *Config) GetString(path string) string {
	val, ok := (*c)[path]
	if !ok {
		panic(fmt.Sprintf("config: string setting %q does not exist", path))
	}
	val.checkType(typeString)
	return val.asString
}

// yamlDoc is the on-disk shape accepted by LoadYAML: a flat map from dotted
// path to scalar value, matching the Config's own path-keyed layout.
type yamlDoc map[string]any

// LoadYAML parses a YAML document of flat dotted-path settings and applies
// them on top of NewDefault(), so a host process only needs to specify the
// values it wants to override.
func LoadYAML(data []byte) (*Config, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	c := NewDefault()
	for path, raw := range doc {
		switch v := raw.(type) {
		case bool:
			c.SetBool(path, v)
		case int:
			c.SetInt(path, int64(v))
		case int64:
			c.SetInt(path, v)
		case float64:
			c.SetFloat(path, v)
		case string:
			c.SetString(path, v)
		default:
			return nil, fmt.Errorf("config: unsupported value type for %q: %T", path, raw)
		}
	}
	return c, nil
}
