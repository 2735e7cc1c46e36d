package steadyflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
)

type config struct {
	logHandler        slog.Handler
	msink             metrics.MetricSink
	metricLabels      []metrics.Label
	args              any
	restartDelay      time.Duration
	telemetryInterval time.Duration
}

// Option to pass to `New`
type Option func(*config) error

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink allows you to chose how to collect the metrics emitted by
// your `Graph` and its actors.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to all metrics produced by the Graph.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithArgs sets the read-only arguments actors can read with
// `Context.Args` or `ArgsAs`.
func WithArgs(args any) Option {
	return func(c *config) error {
		c.args = args
		return nil
	}
}

// WithRestartDelay controls how much time we wait before invoking again
// an actor which terminated abnormally.
func WithRestartDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return errors.New("restart delay must not be negative")
		}
		c.restartDelay = delay
		return nil
	}
}

// WithTelemetryInterval controls how often observed channels are sampled.
// Zero disables the sampling.
func WithTelemetryInterval(interval time.Duration) Option {
	return func(c *config) error {
		if interval < 0 {
			return errors.New("telemetry interval must not be negative")
		}
		c.telemetryInterval = interval
		return nil
	}
}
