package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"oraclequest/config"
	"oraclequest/domain/entities"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	transitionsCounter     metric.Int64Counter
	transitionDurationHist metric.Float64Histogram
	batchAccountsHist      metric.Int64Histogram
	eventsPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.start(reader); err != nil {
		return err
	}
	otel.SetMeterProvider(mp.meterProvider)

	log.Info("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("oraclequest")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.transitionsCounter, err = mp.meter.Int64Counter(
		TransitionsTotal,
		metric.WithDescription("Total number of ledger transitions by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transitions counter: %w", err)
	}

	mp.transitionDurationHist, err = mp.meter.Float64Histogram(
		TransitionDuration,
		metric.WithDescription("Duration of ledger transitions including commit, in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create transition duration histogram: %w", err)
	}

	mp.batchAccountsHist, err = mp.meter.Int64Histogram(
		TreeBatchAccounts,
		metric.WithDescription("Accounts per tree batch by role"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 8),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch accounts histogram: %w", err)
	}

	mp.eventsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of domain events published to NATS"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// ObserveTransition records one engine transition
func (mp *MetricsProvider) ObserveTransition(ctx context.Context, instruction string, regime entities.Regime, elapsed time.Duration, err error) {
	if !mp.isEnabled() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(LabelInstruction, instruction),
		attribute.String(LabelRegime, string(regime)),
	}

	var le *entities.LedgerError
	switch {
	case err == nil:
		attrs = append(attrs, attribute.String(LabelOutcome, OutcomeCommitted))
	case errors.As(err, &le):
		attrs = append(attrs,
			attribute.String(LabelOutcome, OutcomeRejected),
			attribute.String(LabelErrorName, le.Name),
			attribute.String(LabelCategory, string(le.Category)),
		)
	default:
		attrs = append(attrs, attribute.String(LabelOutcome, OutcomeFailed))
	}

	mp.transitionsCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.transitionDurationHist.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelInstruction, instruction),
			attribute.String(LabelRegime, string(regime)),
		),
	)
}

// ObserveBatch records the shape of a tree batch
func (mp *MetricsProvider) ObserveBatch(ctx context.Context, newAddresses, inputs, readOnly, outputs int) {
	if !mp.isEnabled() {
		return
	}

	for role, n := range map[string]int{
		RoleNewAddress: newAddresses,
		RoleInput:      inputs,
		RoleReadOnly:   readOnly,
		RoleOutput:     outputs,
	} {
		mp.batchAccountsHist.Record(ctx, int64(n), metric.WithAttributes(attribute.String(LabelRole, role)))
	}
}

// RecordEventPublished counts a domain event publish attempt
func (mp *MetricsProvider) RecordEventPublished(eventType string, err error) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeCommitted
	if err != nil {
		outcome = OutcomeFailed
	}
	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
