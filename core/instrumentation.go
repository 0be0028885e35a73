package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/talkingai/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	turnCounter, _ = meter.Int64Counter("talkingai.turns",
		metric.WithDescription("Turns processed, by outcome"))
	droppedUtterances, _ = meter.Int64Counter("talkingai.utterances.dropped",
		metric.WithDescription("Finalized segments that did not become a turn"))
	turnDuration, _ = meter.Float64Histogram("talkingai.turn.duration",
		metric.WithDescription("Time from utterance to the end of playback"),
		metric.WithUnit("s"))
)
