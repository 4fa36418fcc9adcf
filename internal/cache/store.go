// Package cache memoizes computed forecast documents. Entries live in S3 as
// zstd-compressed objects, or in process memory when no bucket is configured.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"

	"surfcast/internal/types"
)

// ObjectStore is a key/value store whose entries expire by age.
type ObjectStore interface {
	// Get returns the value stored under key if it was written less than
	// maxAge ago. A miss is reported as ok=false with a nil error.
	Get(ctx context.Context, key string, maxAge time.Duration) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps entries in a bucket. Freshness is checked server-side with
// If-Modified-Since so stale objects are never transferred.
type S3Store struct {
	client ObjectAPI
	bucket string
	clock  types.Clock
	logger *slog.Logger

	encoderPool sync.Pool
	decoderPool sync.Pool
}

// NewS3Store creates an S3Store over bucket.
func NewS3Store(client ObjectAPI, bucket string, clock types.Clock, logger *slog.Logger) *S3Store {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		clock:  clock,
		logger: logger,
		encoderPool: sync.Pool{
			New: func() any {
				e, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
				}
				return e
			},
		},
		decoderPool: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}
}

func (s *S3Store) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	since := s.clock.Now().Add(-maxAge)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		IfModifiedSince: aws.Time(since),
	})
	if err != nil {
		if isMiss(err) {
			return nil, false, nil
		}
		return nil, false, types.NewAppError(types.ErrCodeInternalCache, "failed to read cache entry "+key, err)
	}
	defer out.Body.Close()

	if out.LastModified != nil && out.LastModified.Before(since) {
		return nil, false, nil
	}

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalCache, "failed to read cache entry "+key, err)
	}

	decoder := s.decoderPool.Get().(*zstd.Decoder)
	defer s.decoderPool.Put(decoder)
	value, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *S3Store) Put(ctx context.Context, key string, value []byte) error {
	encoder := s.encoderPool.Get().(*zstd.Encoder)
	compressed := encoder.EncodeAll(value, make([]byte, 0, len(value)/4))
	s.encoderPool.Put(encoder)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(compressed),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("zstd"),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalCache, "failed to write cache entry "+key, err)
	}
	return nil
}

// isMiss reports whether err means the object is absent or older than the
// If-Modified-Since bound.
func isMiss(err error) bool {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotModified, http.StatusNotFound:
			return true
		}
	}
	return false
}

// MemoryStore is an in-process ObjectStore for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   types.Clock
}

type memoryEntry struct {
	value   []byte
	written time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(clock types.Clock) *MemoryStore {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), clock: clock}
}

func (m *MemoryStore) Get(_ context.Context, key string, maxAge time.Duration) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.clock.Now().Sub(e.written) >= maxAge {
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: bytes.Clone(value), written: m.clock.Now()}
	m.mu.Unlock()
	return nil
}
