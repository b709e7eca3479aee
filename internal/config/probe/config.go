package probe_config

import (
	"time"

	"github.com/NordCoder/uptime-probe/internal/obs"
	pg "github.com/NordCoder/uptime-probe/internal/repository/postgres"
	kafkax "github.com/NordCoder/uptime-probe/internal/repository/kafka"
	redisx "github.com/NordCoder/uptime-probe/internal/repository/redis"
	"github.com/NordCoder/uptime-probe/internal/services/probe"
	"github.com/NordCoder/uptime-probe/internal/services/recorder"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Target struct {
	EndpointURL string `mapstructure:"endpoint_url"`
	AuthHeader  string `mapstructure:"auth_header"`
}

type Fixture struct {
	Path string `mapstructure:"path"`
}

type Store struct {
	redisx.Config   `mapstructure:",squash"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	Retention       time.Duration `mapstructure:"retention"`
	RecordTimeout   time.Duration `mapstructure:"record_timeout"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	FailOnError     bool          `mapstructure:"fail_on_error"`
}

func (s Store) AsRecorderConfig() recorder.Config {
	return recorder.Config{Prefix: s.KeyPrefix, Retention: s.Retention, Timeout: s.RecordTimeout}
}

type Archive struct {
	Enable bool      `mapstructure:"enable"`
	DB     pg.Config `mapstructure:"db"`
}

type Events struct {
	kafkax.ProducerConfig `mapstructure:",squash"`
	Enable                bool `mapstructure:"enable"`
}

type Metrics struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
	Instance       string `mapstructure:"instance"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App     App              `mapstructure:"app"`
	Target  Target           `mapstructure:"probe"`
	HTTP    probe.HTTPConfig `mapstructure:"http"`
	Fixture Fixture          `mapstructure:"fixture"`
	Store   Store            `mapstructure:"store"`
	Archive Archive          `mapstructure:"archive"`
	Events  Events           `mapstructure:"events"`
	Metrics Metrics          `mapstructure:"metrics"`
	OTEL    OTEL             `mapstructure:"otel"`
	Log     Log              `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
