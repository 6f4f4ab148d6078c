package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/buildgrid/authcore"
)

// Metrics holds all the OpenTelemetry metric instruments.
type Metrics struct {
	// Decision metrics
	DecisionsTotal   metric.Int64Counter
	DecisionDuration metric.Float64Histogram

	// Claims cache metrics
	ClaimsCacheHits   metric.Int64Counter
	ClaimsCacheMisses metric.Int64Counter

	// Lifecycle metrics
	LifecycleTransitionsTotal metric.Int64Counter
	InvalidTransitionsTotal   metric.Int64Counter

	// Provisioning metrics
	ProvisionedTotal           metric.Int64Counter
	DuplicateProvisioningTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if
// necessary. Instruments work before InitTelemetry runs; they just record
// into a no-op provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.Meter(meterName)

	m := &Metrics{}

	m.DecisionsTotal, _ = meter.Int64Counter("authz.decisions",
		metric.WithDescription("Access check decisions by action and outcome"),
		metric.WithUnit("{decision}"),
	)

	m.DecisionDuration, _ = meter.Float64Histogram("authz.decision.duration",
		metric.WithDescription("Time to build claims and evaluate one access check"),
		metric.WithUnit("ms"),
	)

	m.ClaimsCacheHits, _ = meter.Int64Counter("claims.cache.hits",
		metric.WithDescription("Claims cache hits"),
		metric.WithUnit("{lookup}"),
	)

	m.ClaimsCacheMisses, _ = meter.Int64Counter("claims.cache.misses",
		metric.WithDescription("Claims cache misses"),
		metric.WithUnit("{lookup}"),
	)

	m.LifecycleTransitionsTotal, _ = meter.Int64Counter("lifecycle.transitions",
		metric.WithDescription("Lifecycle transitions by target state"),
		metric.WithUnit("{transition}"),
	)

	m.InvalidTransitionsTotal, _ = meter.Int64Counter("lifecycle.invalid_transitions",
		metric.WithDescription("Lifecycle transitions refused as invalid"),
		metric.WithUnit("{transition}"),
	)

	m.ProvisionedTotal, _ = meter.Int64Counter("provisioning.created",
		metric.WithDescription("Principals created from identity events"),
		metric.WithUnit("{principal}"),
	)

	m.DuplicateProvisioningTotal, _ = meter.Int64Counter("provisioning.duplicates",
		metric.WithDescription("Identity events ignored as already provisioned"),
		metric.WithUnit("{event}"),
	)

	return m
}

// RecordDecision records one access check outcome. The deny reason is kept
// as a metric attribute only; callers surface a uniform "forbidden".
func (m *Metrics) RecordDecision(ctx context.Context, action string, allowed bool, reason string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("action", action),
		attribute.Bool("allowed", allowed),
	}
	if !allowed {
		attrs = append(attrs, attribute.String("reason", reason))
	}

	m.DecisionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.DecisionDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("action", action)))
}

// RecordClaimsCache records a cache lookup.
func (m *Metrics) RecordClaimsCache(ctx context.Context, hit bool) {
	if hit {
		m.ClaimsCacheHits.Add(ctx, 1)
		return
	}
	m.ClaimsCacheMisses.Add(ctx, 1)
}

// RecordTransition records a lifecycle transition attempt.
func (m *Metrics) RecordTransition(ctx context.Context, to string, valid bool) {
	if !valid {
		m.InvalidTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("to", to)))
		return
	}
	m.LifecycleTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("to", to)))
}

// RecordProvisioning records the outcome of one identity event.
func (m *Metrics) RecordProvisioning(ctx context.Context, duplicate bool) {
	if duplicate {
		m.DuplicateProvisioningTotal.Add(ctx, 1)
		return
	}
	m.ProvisionedTotal.Add(ctx, 1)
}
