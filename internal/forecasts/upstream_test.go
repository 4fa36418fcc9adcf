package forecasts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfcast/internal/types"
)

// mockS3ListClient implements S3ListClient for testing.
type mockS3ListClient struct {
	// responses maps "bucket/prefix" to the ListObjectsV2 result.
	responses map[string]*s3.ListObjectsV2Output
	// errors maps a bucket name to an error returned for every call.
	errors  map[string]error
	callLog []string
}

func newMockS3ListClient() *mockS3ListClient {
	return &mockS3ListClient{
		responses: make(map[string]*s3.ListObjectsV2Output),
		errors:    make(map[string]error),
	}
}

func (m *mockS3ListClient) setRuns(bucket, dayPrefix string, runs ...string) {
	out := &s3.ListObjectsV2Output{}
	for _, r := range runs {
		out.CommonPrefixes = append(out.CommonPrefixes, s3types.CommonPrefix{Prefix: aws.String(r)})
	}
	m.responses[bucket+"/"+dayPrefix] = out
}

func (m *mockS3ListClient) setObject(bucket, key string) {
	m.responses[bucket+"/"+key] = &s3.ListObjectsV2Output{Contents: []s3types.Object{{Key: aws.String(key)}}}
}

func (m *mockS3ListClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	bucket := aws.ToString(params.Bucket)
	key := bucket + "/" + aws.ToString(params.Prefix)
	m.callLog = append(m.callLog, key)

	if err, ok := m.errors[bucket]; ok {
		return nil, err
	}
	if resp, ok := m.responses[key]; ok {
		return resp, nil
	}
	return &s3.ListObjectsV2Output{}, nil
}

type mockClock struct{ now time.Time }

func (c *mockClock) Now() time.Time { return c.now }

func TestParseGFSKey(t *testing.T) {
	tests := []struct {
		key    string
		wantTS time.Time
		wantOK bool
	}{
		{"gfs.20240701/06/", time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC), true},
		{"gfs.20240701/18/wave/gridded/gfswave.t18z.atlocn.0p16.f000.grib2", time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC), true},
		{"gfs.20240701/", time.Time{}, false},
		{"gfs.20241301/06/", time.Time{}, false},
		{"hrrr.20240701/06/", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ts, ok := ParseGFSKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTS, ts)
		})
	}
}

func TestEstimatedRun(t *testing.T) {
	now := time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), EstimatedRun(now))

	now = time.Date(2024, 7, 1, 11, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC), EstimatedRun(now))

	now = time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC), EstimatedRun(now))
}

func TestGFSPrefixesForRange(t *testing.T) {
	now := time.Date(2024, 7, 2, 3, 0, 0, 0, time.UTC)
	got := gfsPrefixesForRange(now.Add(-48*time.Hour), now)
	assert.Equal(t, []string{"gfs.20240630/", "gfs.20240701/", "gfs.20240702/"}, got)
}

func TestRunLocator_LatestCompleteRun(t *testing.T) {
	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	client := newMockS3ListClient()
	client.setRuns("noaa-gfs-bdp-pds", "gfs.20240701/", "gfs.20240701/00/", "gfs.20240701/06/", "gfs.20240701/12/")

	m := regionalModels[0]
	run06 := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	client.setObject("noaa-gfs-bdp-pds", m.RunDir(run06)+"/"+m.FileName(run06, 24))

	loc := NewRunLocator(client, []string{"noaa-gfs-bdp-pds"}, &mockClock{now: now}, nil)
	run, err := loc.LatestRun(context.Background(), m, 24)
	require.NoError(t, err)
	// the 12z run is listed but its last step is not published yet
	assert.Equal(t, run06, run)
}

func TestRunLocator_MirrorFailover(t *testing.T) {
	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	client := newMockS3ListClient()
	client.errors["primary"] = errors.New("access denied")
	client.setRuns("backup", "gfs.20240701/", "gfs.20240701/00/")

	m := GlobalModel
	run00 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	client.setObject("backup", m.RunDir(run00)+"/"+m.FileName(run00, 6))

	loc := NewRunLocator(client, []string{"primary", "backup"}, &mockClock{now: now}, nil)
	run, err := loc.LatestRun(context.Background(), m, 6)
	require.NoError(t, err)
	assert.Equal(t, run00, run)
}

func TestRunLocator_AllMirrorsFail(t *testing.T) {
	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	client := newMockS3ListClient()
	client.errors["primary"] = errors.New("timeout")

	loc := NewRunLocator(client, []string{"primary"}, &mockClock{now: now}, nil)
	run, err := loc.LatestRun(context.Background(), GlobalModel, 6)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamForecast, appErr.Code)
	assert.Equal(t, EstimatedRun(now), run)
}

func TestRunLocator_NothingPublishedUsesEstimate(t *testing.T) {
	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	loc := NewRunLocator(newMockS3ListClient(), []string{"primary"}, &mockClock{now: now}, nil)

	run, err := loc.LatestRun(context.Background(), GlobalModel, 6)
	require.NoError(t, err)
	assert.Equal(t, EstimatedRun(now), run)
}

func TestEstimatedRunFinder(t *testing.T) {
	now := time.Date(2024, 7, 1, 11, 5, 0, 0, time.UTC)
	run, err := EstimatedRunFinder{Clock: &mockClock{now: now}}.LatestRun(context.Background(), GlobalModel, 120)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC), run)
}
