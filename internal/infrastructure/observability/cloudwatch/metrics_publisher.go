package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000

	// MetricTPS имя основного значения точки истории
	MetricTPS = "TPS"
)

type metricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "DevExDashboard/Feed")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	Feed              string            // Значение измерения Feed
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffer size (datums) before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
}

// MetricsPublisher публикует точки истории feed в AWS CloudWatch.
// Каждая точка дает datum TPS и по одному datum на производное поле.
type MetricsPublisher struct {
	client            metricsAPI
	namespace         string
	dimensions        []types.Dimension
	storageResolution int32

	buffer     []types.MetricDatum
	bufferSize int
	mu         sync.Mutex

	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewMetricsPublisher creates a new CloudWatch metrics publisher.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	// Build AWS config
	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg)

	// Start background flush goroutine
	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func newMetricsPublisher(client metricsAPI, cfg MetricsPublisherConfig) *MetricsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60 // Default to standard resolution
	}

	return &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		dimensions:        buildDimensions(cfg.Feed, cfg.DefaultDimensions),
		storageResolution: cfg.StorageResolution,
		buffer:            make([]types.MetricDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushInterval:     cfg.FlushInterval,
		stopCh:            make(chan struct{}),
	}
}

// PublishBatch buffers samples and flushes when the buffer is full.
func (p *MetricsPublisher) PublishBatch(ctx context.Context, samples []entity.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sample := range samples {
		p.buffer = append(p.buffer, p.convertToData(sample)...)
	}

	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered metrics.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining metrics.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()

	return p.Flush(ctx)
}

// flushLoop runs in a background goroutine and flushes the buffer periodically.
func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			// ошибка не сбрасывает буфер: повтор на следующем тике
			_ = p.Flush(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	for len(p.buffer) > 0 {
		end := min(len(p.buffer), maxMetricsPerRequest)
		chunk := p.buffer[:end]

		err := retry(ctx, func() error {
			_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
				Namespace:  aws.String(p.namespace),
				MetricData: chunk,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}

		p.buffer = p.buffer[end:]
	}

	p.buffer = make([]types.MetricDatum, 0, p.bufferSize)
	return nil
}

// convertToData converts a history sample into CloudWatch datums.
func (p *MetricsPublisher) convertToData(sample entity.MetricSample) []types.MetricDatum {
	data := make([]types.MetricDatum, 0, 1+len(sample.Fields))
	data = append(data, p.datum(MetricTPS, sample.Value, sample.Timestamp))

	names := make([]string, 0, len(sample.Fields))
	for name := range sample.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data = append(data, p.datum(name, sample.Fields[name], sample.Timestamp))
	}
	return data
}

func (p *MetricsPublisher) datum(name string, value float64, ts time.Time) types.MetricDatum {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       mapUnit(name),
		Timestamp:  aws.Time(ts),
		Dimensions: p.dimensions,
	}

	// Set storage resolution (high-resolution metrics)
	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

func buildDimensions(feed string, defaults map[string]string) []types.Dimension {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dimensions := make([]types.Dimension, 0, len(keys)+1)
	for _, key := range keys {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(defaults[key]),
		})
	}

	if feed != "" {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String("Feed"),
			Value: aws.String(feed),
		})
	}
	return dimensions
}

// mapUnit maps sample field names to CloudWatch StandardUnit.
func mapUnit(name string) types.StandardUnit {
	switch name {
	case MetricTPS:
		return types.StandardUnitCountSecond
	case "cpuUsage", "memoryUsage", "diskUsage":
		return types.StandardUnitPercent
	case "avgBlockTimeMs":
		return types.StandardUnitMilliseconds
	case "slot", "blockHeight", "activeValidators":
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
