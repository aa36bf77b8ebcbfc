package entries

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

const statsCacheSize = 10 * 1024 * 1024

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(raw), nil
	default:
		return "", fmt.Errorf("unknown period: %s", raw)
	}
}

type PushupStatsPoint struct {
	Date  string  `json:"date"`
	Count float64 `json:"count"`
}

type WalkStatsPoint struct {
	Date  string  `json:"date"`
	Miles float64 `json:"miles"`
}

type pushupsLister interface {
	ListAll(ctx context.Context, userID int) ([]PushupEntry, error)
}

type walksLister interface {
	ListAll(ctx context.Context, userID int) ([]WalkEntry, error)
}

// Analyzer aggregates raw entries into per-day, per-week or per-month
// totals for the progress charts. Results are cached per user.
type Analyzer struct {
	pushups  pushupsLister
	walks    walksLister
	cache    *freecache.Cache
	cacheTTL time.Duration
}

func NewAnalyzer(pushups pushupsLister, walks walksLister, cacheTTL time.Duration) *Analyzer {
	return &Analyzer{
		pushups:  pushups,
		walks:    walks,
		cache:    freecache.NewCache(statsCacheSize),
		cacheTTL: cacheTTL,
	}
}

func (a *Analyzer) PushupStats(ctx context.Context, userID int, period Period) (_ []PushupStatsPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.pushups.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("period", string(period)))

	cacheKey := statsCacheKey(userID, "pushups", period)
	if cached, err := a.cache.Get(cacheKey); err == nil {
		var points []PushupStatsPoint
		if err := json.Unmarshal(cached, &points); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return points, nil
		}
		log.Errorf("unmarshal cached pushup stats for user %d: %s", userID, err)
	}

	all, err := a.pushups.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pushups: %w", err)
	}

	samples := make([]sample, 0, len(all))
	for _, e := range all {
		samples = append(samples, sample{at: e.CreatedAt, value: float64(e.Count)})
	}

	points := make([]PushupStatsPoint, 0)
	for _, b := range aggregate(samples, period) {
		points = append(points, PushupStatsPoint{Date: b.label, Count: b.total})
	}

	a.cacheSet(cacheKey, points)

	return points, nil
}

func (a *Analyzer) WalkStats(ctx context.Context, userID int, period Period) (_ []WalkStatsPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.walks.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("period", string(period)))

	cacheKey := statsCacheKey(userID, "walks", period)
	if cached, err := a.cache.Get(cacheKey); err == nil {
		var points []WalkStatsPoint
		if err := json.Unmarshal(cached, &points); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return points, nil
		}
		log.Errorf("unmarshal cached walk stats for user %d: %s", userID, err)
	}

	all, err := a.walks.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list walks: %w", err)
	}

	samples := make([]sample, 0, len(all))
	for _, e := range all {
		samples = append(samples, sample{at: e.CreatedAt, value: e.Miles})
	}

	points := make([]WalkStatsPoint, 0)
	for _, b := range aggregate(samples, period) {
		points = append(points, WalkStatsPoint{Date: b.label, Miles: b.total})
	}

	a.cacheSet(cacheKey, points)

	return points, nil
}

// InvalidateUser drops all cached stats of a user, called after the
// user adds or deletes an entry.
func (a *Analyzer) InvalidateUser(userID int) {
	for _, kind := range []string{"pushups", "walks"} {
		for _, period := range []Period{PeriodDaily, PeriodWeekly, PeriodMonthly} {
			a.cache.Del(statsCacheKey(userID, kind, period))
		}
	}
}

func (a *Analyzer) cacheSet(key []byte, points any) {
	pointsJson, err := json.Marshal(points)
	if err != nil {
		log.Errorf("marshal stats points for cache: %s", err)
		return
	}
	if err := a.cache.Set(key, pointsJson, int(a.cacheTTL.Seconds())); err != nil {
		log.Errorf("cache stats points: %s", err)
	}
}

func statsCacheKey(userID int, kind string, period Period) []byte {
	return []byte(fmt.Sprintf("stats||%d||%s||%s", userID, kind, period))
}

type sample struct {
	at    time.Time
	value float64
}

type bucket struct {
	start time.Time
	label string
	total float64
}

func aggregate(samples []sample, period Period) []bucket {
	byStart := make(map[time.Time]*bucket)
	for _, s := range samples {
		start, label := bucketOf(s.at, period)
		b, ok := byStart[start]
		if !ok {
			b = &bucket{start: start, label: label}
			byStart[start] = b
		}
		b.total += s.value
	}

	buckets := make([]bucket, 0, len(byStart))
	for _, b := range byStart {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].start.Before(buckets[j].start)
	})

	return buckets
}

func bucketOf(t time.Time, period Period) (start time.Time, label string) {
	switch period {
	case PeriodWeekly:
		// weeks start on monday
		daysFromMonday := int(t.Weekday()) - 1
		if daysFromMonday < 0 {
			daysFromMonday = 6
		}
		start = time.Date(t.Year(), t.Month(), t.Day()-daysFromMonday, 0, 0, 0, 0, t.Location())
		return start, start.Format("01/02")
	case PeriodMonthly:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		return start, start.Format("Jan 2006")
	default:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return start, start.Format("01/02")
	}
}
