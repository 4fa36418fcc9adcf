package forecasts

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"surfcast/internal/types"
)

// S3ListClient abstracts the S3 ListObjectsV2 operation for testability.
type S3ListClient interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// GFS cycles run every six hours; wave output lands a few hours later.
const (
	cycleInterval    = 6 * time.Hour
	publicationDelay = 5 * time.Hour
	lookbackDays     = 2
)

// gfsKeyPattern matches GFS directory prefixes of the form gfs.YYYYMMDD/HH/
var gfsKeyPattern = regexp.MustCompile(`^gfs\.(\d{4})(\d{2})(\d{2})/(\d{2})/`)

// RunLocator finds the most recent GFS-Wave run whose output is complete in
// the NOAA open-data buckets.
type RunLocator struct {
	client  S3ListClient
	mirrors []string // ordered bucket names, first success wins
	clock   types.Clock
	logger  *slog.Logger
}

// NewRunLocator creates a locator with mirror failover.
func NewRunLocator(client S3ListClient, mirrors []string, clock types.Clock, logger *slog.Logger) *RunLocator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &RunLocator{client: client, mirrors: mirrors, clock: clock, logger: logger}
}

// LatestRun returns the newest run for which the final step of m up to
// maxHour has been published. When every mirror fails, or none lists a
// complete run, the run is estimated from the clock.
func (l *RunLocator) LatestRun(ctx context.Context, m Model, maxHour int) (time.Time, error) {
	var lastErr error
	for _, bucket := range l.mirrors {
		run, ok, err := l.latestInBucket(ctx, bucket, m, maxHour)
		if err != nil {
			l.logger.WarnContext(ctx, "mirror unavailable", "bucket", bucket, "model", m.Name, "error", err)
			lastErr = err
			continue
		}
		if ok {
			return run, nil
		}
	}

	estimate := EstimatedRun(l.clock.Now())
	if lastErr != nil {
		l.logger.WarnContext(ctx, "all mirrors failed, using estimated run",
			"model", m.Name, "run", estimate, "error", lastErr)
		return estimate, &types.AppError{
			Code:    types.ErrCodeUpstreamForecast,
			Message: fmt.Sprintf("all upstream mirrors failed for %s", m.Name),
			Err:     lastErr,
		}
	}
	return estimate, nil
}

func (l *RunLocator) latestInBucket(ctx context.Context, bucket string, m Model, maxHour int) (time.Time, bool, error) {
	runs, err := l.listRuns(ctx, bucket)
	if err != nil {
		return time.Time{}, false, err
	}

	hours := ForecastHours(maxHour)
	last := hours[len(hours)-1]
	for i := len(runs) - 1; i >= 0; i-- {
		key := m.RunDir(runs[i]) + "/" + m.FileName(runs[i], last)
		out, err := l.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			Prefix:  aws.String(key),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return time.Time{}, false, fmt.Errorf("listing %s/%s: %w", bucket, key, err)
		}
		if len(out.Contents) > 0 {
			return runs[i], true, nil
		}
	}
	return time.Time{}, false, nil
}

// listRuns returns run times found in the bucket over the lookback window, oldest first.
func (l *RunLocator) listRuns(ctx context.Context, bucket string) ([]time.Time, error) {
	seen := make(map[time.Time]struct{})
	var runs []time.Time
	for _, prefix := range gfsPrefixesForRange(l.clock.Now().Add(-lookbackDays*24*time.Hour), l.clock.Now()) {
		out, err := l.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:    aws.String(bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", bucket, prefix, err)
		}
		for _, cp := range out.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			ts, ok := ParseGFSKey(*cp.Prefix)
			if !ok {
				continue
			}
			if _, dup := seen[ts]; !dup {
				seen[ts] = struct{}{}
				runs = append(runs, ts)
			}
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Before(runs[j]) })
	return runs, nil
}

// gfsPrefixesForRange generates the daily "gfs.YYYYMMDD/" prefixes from since through now.
func gfsPrefixesForRange(since, now time.Time) []string {
	sinceDate := since.UTC().Truncate(24 * time.Hour)
	nowDate := now.UTC().Truncate(24 * time.Hour)

	var prefixes []string
	for d := sinceDate; !d.After(nowDate); d = d.Add(24 * time.Hour) {
		prefixes = append(prefixes, fmt.Sprintf("gfs.%s/", d.Format("20060102")))
	}
	return prefixes
}

// ParseGFSKey extracts a run timestamp from a GFS S3 key or prefix.
func ParseGFSKey(key string) (time.Time, bool) {
	m := gfsKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102 15", m[1]+m[2]+m[3]+" "+m[4])
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// EstimatedRun is the newest cycle old enough to have been published at now.
func EstimatedRun(now time.Time) time.Time {
	return now.UTC().Add(-publicationDelay).Truncate(cycleInterval)
}

// EstimatedRunFinder derives the run from the clock alone. Used when the
// mirror buckets must not be contacted.
type EstimatedRunFinder struct {
	Clock types.Clock
}

func (f EstimatedRunFinder) LatestRun(context.Context, Model, int) (time.Time, error) {
	clock := f.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return EstimatedRun(clock.Now()), nil
}
