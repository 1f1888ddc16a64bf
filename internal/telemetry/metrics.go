package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ChatTurns           metric.Int64Counter
	RetrievalDuration   metric.Float64Histogram
	GenerationDuration  metric.Float64Histogram
	IngestionDuration   metric.Float64Histogram
	ChunksIndexed       metric.Int64Counter
	TokensUsed          metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)
	m := &Metrics{}
	var err error

	if m.RequestCounter, err = meter.Int64Counter("http.requests.total",
		metric.WithDescription("Total HTTP requests")); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ChatTurns, err = meter.Int64Counter("chat.turns.total",
		metric.WithDescription("Chat turns by outcome")); err != nil {
		return nil, err
	}
	if m.RetrievalDuration, err = meter.Float64Histogram("index.search.duration",
		metric.WithDescription("Scoped similarity search duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.GenerationDuration, err = meter.Float64Histogram("llm.generate.duration",
		metric.WithDescription("Language model call duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.IngestionDuration, err = meter.Float64Histogram("pdf.ingestion.duration",
		metric.WithDescription("PDF ingestion duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ChunksIndexed, err = meter.Int64Counter("index.chunks.total",
		metric.WithDescription("Chunks committed to the index")); err != nil {
		return nil, err
	}
	if m.TokensUsed, err = meter.Int64Counter("llm.tokens.used",
		metric.WithDescription("Total language model tokens used")); err != nil {
		return nil, err
	}
	if m.CircuitBreakerState, err = meter.Int64Counter("circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes")); err != nil {
		return nil, err
	}

	return m, nil
}

// All Record* methods accept a nil receiver so callers can run without metrics.

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)
	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordChatTurn records the outcome of one chat turn.
func (m *Metrics) RecordChatTurn(ctx context.Context, outcome string, sources int) {
	if m == nil {
		return
	}
	m.ChatTurns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("chat.outcome", outcome),
		attribute.Int("chat.sources", sources),
	))
}

// RecordRetrieval records the duration of a scoped search.
func (m *Metrics) RecordRetrieval(ctx context.Context, duration float64, results int) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Record(ctx, duration, metric.WithAttributes(attribute.Int("index.results", results)))
}

// RecordGeneration records the duration of a language model call.
func (m *Metrics) RecordGeneration(ctx context.Context, duration float64, success bool) {
	if m == nil {
		return
	}
	m.GenerationDuration.Record(ctx, duration, metric.WithAttributes(attribute.Bool("llm.success", success)))
}

// RecordIngestion records PDF ingestion metrics
func (m *Metrics) RecordIngestion(ctx context.Context, duration float64, status string, chunks int) {
	if m == nil {
		return
	}
	m.IngestionDuration.Record(ctx, duration, metric.WithAttributes(attribute.String("pdf.status", status)))
	if chunks > 0 {
		m.ChunksIndexed.Add(ctx, int64(chunks))
	}
}

// RecordTokensUsed records language model token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	if m == nil {
		return
	}
	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attribute.String("llm.model", model)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, from, to string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from),
		attribute.String("state", to),
	))
}
