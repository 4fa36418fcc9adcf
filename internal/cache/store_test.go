package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfcast/internal/types"
)

type mockClock struct{ now time.Time }

func (c *mockClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type storedObject struct {
	body         []byte
	lastModified time.Time
	encoding     string
}

// mockObjectAPI is an in-memory bucket honouring If-Modified-Since the way
// S3 does, by failing with a 304 response error.
type mockObjectAPI struct {
	mu      sync.Mutex
	clock   *mockClock
	objects map[string]storedObject
	getErr  error
	putErr  error
}

func newMockObjectAPI(clock *mockClock) *mockObjectAPI {
	return &mockObjectAPI{clock: clock, objects: make(map[string]storedObject)}
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}

func (m *mockObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	obj, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	if in.IfModifiedSince != nil && !obj.lastModified.After(*in.IfModifiedSince) {
		return nil, responseError(http.StatusNotModified)
	}
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader(obj.body)),
		LastModified: aws.Time(obj.lastModified),
	}, nil
}

func (m *mockObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(in.Body)
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = storedObject{
		body:         body,
		lastModified: m.clock.now,
		encoding:     aws.ToString(in.ContentEncoding),
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_RoundTripCompressed(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	api := newMockObjectAPI(clock)
	store := NewS3Store(api, "cache", clock, testLogger())
	ctx := context.Background()

	doc := bytes.Repeat([]byte(`{"swell_height":1.2},`), 200)
	require.NoError(t, store.Put(ctx, "ttl-short/forecast/v1/ocean-city", doc))

	stored := api.objects["cache/ttl-short/forecast/v1/ocean-city"]
	assert.Equal(t, "zstd", stored.encoding)
	assert.Less(t, len(stored.body), len(doc))

	decoder, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer decoder.Close()
	raw, err := decoder.DecodeAll(stored.body, nil)
	require.NoError(t, err)
	assert.Equal(t, doc, raw)

	clock.now = clock.now.Add(10 * time.Minute)
	got, ok, err := store.Get(ctx, "ttl-short/forecast/v1/ocean-city", 30*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, got)
}

func TestS3Store_Misses(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	api := newMockObjectAPI(clock)
	store := NewS3Store(api, "cache", clock, testLogger())
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "absent", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "missing key")

	require.NoError(t, store.Put(ctx, "old", []byte("{}")))
	clock.now = clock.now.Add(45 * time.Minute)
	_, ok, err = store.Get(ctx, "old", 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "stale entry")

	api.objects["cache/garbage"] = storedObject{body: []byte("not zstd"), lastModified: clock.now}
	_, ok, err = store.Get(ctx, "garbage", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "undecodable entry")
}

func TestS3Store_Errors(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	api := newMockObjectAPI(clock)
	store := NewS3Store(api, "cache", clock, testLogger())
	ctx := context.Background()

	api.getErr = responseError(http.StatusForbidden)
	_, _, err := store.Get(ctx, "k", time.Hour)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalCache, appErr.Code)

	api.putErr = errors.New("throttled")
	err = store.Put(ctx, "k", []byte("v"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalCache, appErr.Code)
}

func TestIsMiss(t *testing.T) {
	assert.True(t, isMiss(&s3types.NoSuchKey{}))
	assert.True(t, isMiss(responseError(http.StatusNotModified)))
	assert.True(t, isMiss(responseError(http.StatusNotFound)))
	assert.False(t, isMiss(responseError(http.StatusInternalServerError)))
	assert.False(t, isMiss(errors.New("boom")))
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &mockClock{now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'x'

	got, ok, err := store.Get(ctx, "k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got)

	clock.now = clock.now.Add(time.Hour)
	_, ok, _ = store.Get(ctx, "k", time.Hour)
	assert.False(t, ok)
}
