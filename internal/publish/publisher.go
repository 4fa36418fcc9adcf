// Package publish writes forecast documents to the public bucket the web
// client reads from.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"surfcast/internal/forecasts"
	"surfcast/internal/types"
)

// Object keys and their cache lifetimes.
const (
	ForecastPrefix = "data/forecast/"
	LocationsKey   = "data/locations"

	forecastCacheControl  = "public, max-age=1800"
	locationsCacheControl = "public, max-age=7200"
)

// S3Putter abstracts the S3 PutObject operation for testability.
type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads JSON documents with CDN cache headers.
type S3Publisher struct {
	client S3Putter
	bucket string
	logger *slog.Logger
}

// NewS3Publisher creates an S3Publisher for bucket.
func NewS3Publisher(client S3Putter, bucket string, logger *slog.Logger) *S3Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Publisher{client: client, bucket: bucket, logger: logger}
}

// ForecastKey is the object key of a location's forecast.
func ForecastKey(locationID string) string {
	return ForecastPrefix + locationID
}

// Publish uploads rec under its location's key.
func (p *S3Publisher) Publish(ctx context.Context, rec *forecasts.Record) error {
	return p.put(ctx, ForecastKey(rec.LocationID), forecastCacheControl, rec)
}

// PublishLocations uploads the public location index.
func (p *S3Publisher) PublishLocations(ctx context.Context, locations []types.LocationSummary) error {
	return p.put(ctx, LocationsKey, locationsCacheControl, locations)
}

func (p *S3Publisher) put(ctx context.Context, key, cacheControl string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalPublish, "failed to encode "+key, err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeInternalPublish, "failed to upload "+key, err,
			map[string]any{"bucket": p.bucket})
	}

	p.logger.DebugContext(ctx, "document published", "bucket", p.bucket, "key", key, "bytes", len(body))
	return nil
}
