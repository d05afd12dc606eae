package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lottoengine/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// MetricsProvider manages OpenTelemetry metrics for the lottery engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	exporterConn  *grpc.ClientConn
	initialized   bool
	mu            sync.RWMutex

	claimsCounter          metric.Int64Counter
	claimDurationHist      metric.Float64Histogram
	drawsExecutedCounter   metric.Int64Counter
	drawsSettledCounter    metric.Int64Counter
	prizeAwardsCounter     metric.Int64Counter
	ticketsIssuedCounter   metric.Int64Counter
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
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
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

		conn, err := grpc.NewClient(mp.config.OTelOTLPEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to create OTLP connection: %w", err)
		}

		exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		mp.exporterConn = conn
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		log.Info("Metrics export disabled")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = 10 * time.Second
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("lottoengine")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.claimsCounter, err = mp.meter.Int64Counter(
		ClaimsTotal,
		metric.WithDescription("Ticket claims by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create claims counter: %w", err)
	}

	mp.claimDurationHist, err = mp.meter.Float64Histogram(
		ClaimDuration,
		metric.WithDescription("Duration of ticket claims in seconds, lock wait included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create claim duration histogram: %w", err)
	}

	mp.drawsExecutedCounter, err = mp.meter.Int64Counter(
		DrawsExecutedTotal,
		metric.WithDescription("Draws whose winning numbers were derived"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws executed counter: %w", err)
	}

	mp.drawsSettledCounter, err = mp.meter.Int64Counter(
		DrawsSettledTotal,
		metric.WithDescription("Draws settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create draws settled counter: %w", err)
	}

	mp.prizeAwardsCounter, err = mp.meter.Int64Counter(
		PrizeAwardsTotal,
		metric.WithDescription("Prize awards created by settlement"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create prize awards counter: %w", err)
	}

	mp.ticketsIssuedCounter, err = mp.meter.Int64Counter(
		TicketsIssuedTotal,
		metric.WithDescription("Tickets issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tickets issued counter: %w", err)
	}

	mp.eventsPublishedCounter, err = mp.meter.Int64Counter(
		EventsPublishedTotal,
		metric.WithDescription("Domain events published to NATS"),
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

	var err error
	if mp.meterProvider != nil {
		err = mp.meterProvider.Shutdown(ctx)
	}
	// The exporter does not own a connection passed in with WithGRPCConn
	if mp.exporterConn != nil {
		if closeErr := mp.exporterConn.Close(); err == nil {
			err = closeErr
		}
		mp.exporterConn = nil
	}
	return err
}

// RecordClaim records one claim attempt with its outcome and duration
func (mp *MetricsProvider) RecordClaim(outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome))
	mp.claimsCounter.Add(context.Background(), 1, attrs)
	mp.claimDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordDrawExecuted records a draw execution
func (mp *MetricsProvider) RecordDrawExecuted(gameCode string) {
	if !mp.isEnabled() {
		return
	}

	mp.drawsExecutedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelGameCode, gameCode)),
	)
}

// RecordDrawSettled records a settlement and the awards it created
func (mp *MetricsProvider) RecordDrawSettled(gameCode string, awardsCreated int) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelGameCode, gameCode))
	mp.drawsSettledCounter.Add(context.Background(), 1, attrs)
	if awardsCreated > 0 {
		mp.prizeAwardsCounter.Add(context.Background(), int64(awardsCreated), attrs)
	}
}

// RecordTicketsIssued records issued tickets by issuer type
func (mp *MetricsProvider) RecordTicketsIssued(issuedBy string, count int) {
	if !mp.isEnabled() || count <= 0 {
		return
	}

	mp.ticketsIssuedCounter.Add(context.Background(), int64(count),
		metric.WithAttributes(attribute.String(LabelIssuedBy, issuedBy)),
	)
}

// RecordEventPublished records an event published to NATS
func (mp *MetricsProvider) RecordEventPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if metrics are enabled and initialized; a nil provider is disabled
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil until initialized
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
