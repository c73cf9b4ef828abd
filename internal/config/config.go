// Package config loads the command's settings. Later sources override earlier
// ones: built-in defaults, an optional YAML file, GRAPHQLERR_ environment
// variables, then flags set on the command line.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hanpama/graphqlerr/internal/logging"
)

// EnvPrefix prefixes environment variables read by Load. Sections are
// separated by the first underscore and dashes are written as underscores:
// GRAPHQLERR_SERVER_MAX_BODY_BYTES sets server.max-body-bytes.
const EnvPrefix = "GRAPHQLERR_"

type Config struct {
	Server   Server         `koanf:"server"`
	Schema   string         `koanf:"schema"`
	Fixtures string         `koanf:"fixtures"`
	OTel     OTel           `koanf:"otel"`
	Log      logging.Config `koanf:"log"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	Pretty          bool          `koanf:"pretty"`
	Timeout         time.Duration `koanf:"timeout"`
	Debug           bool          `koanf:"debug"`
	MaxBodyBytes    int64         `koanf:"max-body-bytes"`
	MetadataHeaders []string      `koanf:"metadata-headers"`
	CORSOrigins     []string      `koanf:"cors-origins"`
	Introspection   bool          `koanf:"introspection"`
}

type OTel struct {
	Endpoint string `koanf:"endpoint"`
	Service  string `koanf:"service"`
}

// Defaults returns the values used when no other source sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":           ":8080",
		"server.pretty":         false,
		"server.timeout":        "10s",
		"server.debug":          false,
		"server.max-body-bytes": int64(1 << 20),
		"server.introspection":  true,
		"otel.service":          "graphqlerr",
		"log.level":             "info",
		"log.format":            logging.FormatConsole,
	}
}

// flagKeys maps flag names that differ from their configuration key.
var flagKeys = map[string]string{
	"server.metadata-header": "server.metadata-headers",
	"server.cors-origin":     "server.cors-origins",
}

// RegisterFlags defines a flag on fs for every configuration key, plus
// -config for the file path.
func RegisterFlags(fs *flag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("schema", "", "path to the GraphQL SDL schema")
	fs.String("fixtures", "", "path to the YAML resolver fixtures")
	fs.String("server.addr", d["server.addr"].(string), "listen address")
	fs.Bool("server.pretty", false, "indent JSON responses")
	fs.Duration("server.timeout", 10*time.Second, "default request timeout")
	fs.Bool("server.debug", false, "add the exception extension to errors (never on untrusted networks)")
	fs.Int64("server.max-body-bytes", d["server.max-body-bytes"].(int64), "maximum request body size")
	fs.Var(&StringList{}, "server.metadata-header", "forward this HTTP header as gRPC metadata (repeatable)")
	fs.Var(&StringList{}, "server.cors-origin", "allowed CORS origin (repeatable)")
	fs.Bool("server.introspection", true, "answer __schema and __type queries")
	fs.String("otel.endpoint", "", "OTLP gRPC collector endpoint; empty disables tracing")
	fs.String("otel.service", d["otel.service"].(string), "service name reported to the collector")
	fs.String("log.level", d["log.level"].(string), "log level")
	fs.String("log.format", d["log.format"].(string), "log format: json or console")
}

// Load reads configuration from path (skipped when empty), the environment
// and the flags explicitly set on flags (which may be nil).
func Load(path string, flags *flag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if flags != nil {
		if err := k.Load(confmap.Provider(setFlags(flags), "."), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the command cannot run with.
func (c *Config) Validate() error {
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative (got %s)", c.Server.Timeout)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max-body-bytes must not be negative (got %d)", c.Server.MaxBodyBytes)
	}
	return c.Log.Validate()
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	switch section {
	case "server", "otel", "log":
		return section + "." + strings.ReplaceAll(rest, "_", "-")
	}
	return strings.ReplaceAll(s, "_", "-")
}

// setFlags collects the flags that were set on the command line, keyed by
// configuration key.
func setFlags(fs *flag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		key := f.Name
		if k, ok := flagKeys[key]; ok {
			key = k
		}
		if g, ok := f.Value.(flag.Getter); ok {
			out[key] = g.Get()
			return
		}
		out[key] = f.Value.String()
	})
	return out
}

// StringList is a repeatable string flag.
type StringList []string

func (l *StringList) String() string { return strings.Join(*l, ",") }

func (l *StringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func (l *StringList) Get() any { return []string(*l) }
