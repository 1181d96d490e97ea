package spanz

import (
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config describes a tracer. Every field can be overridden from the
// environment with the SPANZ_ prefix, e.g. SPANZ_PROJECT_ID.
type Config struct {
	ProjectID        string `yaml:"project_id" split_words:"true"`
	TraceID          string `yaml:"trace_id" split_words:"true"`
	RootParentSpanID uint64 `yaml:"root_parent_span_id" split_words:"true"`
	IDPoolSize       int    `yaml:"id_pool_size" split_words:"true"`
	LogLevel         string `yaml:"log_level" split_words:"true"`
}

// ReadConfig reads a YAML config file and applies environment overrides.
func ReadConfig(path string) (c Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, errors.Wrap(err, "open config")
	}
	defer f.Close()
	return readConfig(f)
}

func readConfig(r io.Reader) (c Config, err error) {
	bts, err := io.ReadAll(r)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}
	if err = yaml.Unmarshal(bts, &c); err != nil {
		return c, errors.Wrap(err, "parse config")
	}
	if err = envconfig.Process("spanz", &c); err != nil {
		return c, errors.Wrap(err, "config from environment")
	}
	if c.TraceID == "" {
		c.TraceID = NewTraceID()
	}
	return c, nil
}

// NewFromConfig creates a tracer from c. Options in opts are applied after
// the ones derived from c.
func NewFromConfig(c Config, consumer Consumer, opts ...Option) (*Tracer, error) {
	var base []Option
	if c.IDPoolSize > 0 {
		base = append(base, WithIDPoolSize(c.IDPoolSize))
	}
	if c.RootParentSpanID != 0 {
		base = append(base, WithRootParentSpanID(c.RootParentSpanID))
	}
	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, invalidArgument("log level %q", c.LogLevel)
		}
		logger := logrus.New()
		logger.SetLevel(level)
		base = append(base, WithLogger(logger))
	}

	traceID := c.TraceID
	if traceID == "" {
		traceID = NewTraceID()
	}

	return New(consumer, c.ProjectID, traceID, append(base, opts...)...)
}
