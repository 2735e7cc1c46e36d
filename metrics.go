package steadyflow

import (
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"
)

var (
	// MetricActorInvocationCount counts every invocation of an actor
	// function, the first one included.
	MetricActorInvocationCount = []string{"steadyflow", "actor", "invocation", "count"}
	MetricActorRestartCount    = []string{"steadyflow", "actor", "restart", "count"}
	MetricActorTerminatedCount = []string{"steadyflow", "actor", "terminated", "count"}
	MetricActorRunDuration     = []string{"steadyflow", "actor", "run", "duration"}
	MetricShutdownRequestCount = []string{"steadyflow", "shutdown", "request", "count"}
	MetricChannelDepth         = []string{"steadyflow", "channel", "depth"}
	MetricChannelCapacity      = []string{"steadyflow", "channel", "capacity"}
	MetricStageSentCount       = []string{"steadyflow", "stage", "sent", "count"}
	MetricStageConsumedCount   = []string{"steadyflow", "stage", "consumed", "count"}
	MetricStageQuarantineCount = []string{"steadyflow", "stage", "quarantine", "count"}
)

type TelemetryLabel string

var (
	LabelActor       TelemetryLabel = "actor"
	LabelChannel     TelemetryLabel = "channel"
	LabelCount       TelemetryLabel = "count"
	LabelDropped     TelemetryLabel = "dropped"
	LabelDuration    TelemetryLabel = "duration"
	LabelError       TelemetryLabel = "error"
	LabelHeartbeats  TelemetryLabel = "heartbeats"
	LabelIncarnation TelemetryLabel = "incarnation"
	LabelInvocation  TelemetryLabel = "invocation"
	LabelKind        TelemetryLabel = "kind"
	LabelReason      TelemetryLabel = "reason"
	LabelRestart     TelemetryLabel = "restart"
	LabelRunID       TelemetryLabel = "run_id"
	LabelSent        TelemetryLabel = "sent"
	LabelThreshold   TelemetryLabel = "threshold"
	LabelTotal       TelemetryLabel = "total"
	LabelValue       TelemetryLabel = "value"
	LabelValues      TelemetryLabel = "values"

	// per-variant totals of FizzBuzz messages.
	LabelFizz     TelemetryLabel = "fizz"
	LabelBuzz     TelemetryLabel = "buzz"
	LabelFizzBuzz TelemetryLabel = "fizzbuzz"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// observeChannels samples the depth of every observed channel until the
// graph has stopped.
func (g *Graph) observeChannels() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.config.telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-g.doneCh:
			return
		}

		g.lk.Lock()
		observed := g.observed
		g.lk.Unlock()

		for _, ch := range observed {
			labels := g.labels(LabelChannel.M(ch.Name()))
			g.config.msink.SetGaugeWithLabels(MetricChannelDepth, float32(ch.Len()), labels)
			g.config.msink.SetGaugeWithLabels(MetricChannelCapacity, float32(ch.Cap()), labels)
		}
	}
}

// labels appends the static labels of the graph to extra.
func (g *Graph) labels(extra ...metrics.Label) []metrics.Label {
	labels := make([]metrics.Label, 0, len(g.config.metricLabels)+len(extra))
	labels = append(labels, g.config.metricLabels...)
	return append(labels, extra...)
}
