// Package stats aggregates latencies and failures of repeated requests.
package stats

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	rchttp "github.com/yingyang9416/RestAPICaller/http"
	"github.com/yingyang9416/RestAPICaller/pkg/jsonschema"
)

// Histogram range in microseconds: 1µs to 1 hour, 3 significant figures.
const (
	histMin     int64 = 1
	histMax     int64 = 3600000000
	histSigFigs       = 3
)

// Recorder collects request outcomes. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	hist    *hdrhistogram.Histogram
	total   int64
	failed  int64
	byKind  map[string]int64
	started time.Time
}

// KindCount is the number of failures of one kind.
type KindCount struct {
	Kind  string
	Count int64
}

// Summary is a snapshot of a Recorder.
type Summary struct {
	Total    int64
	Failed   int64
	Elapsed  time.Duration
	Min      time.Duration
	Max      time.Duration
	Mean     time.Duration
	P50      time.Duration
	P90      time.Duration
	P99      time.Duration
	Failures []KindCount
}

// Succeeded returns the number of requests that did not fail.
func (s Summary) Succeeded() int64 { return s.Total - s.Failed }

// RequestsPerSecond returns the observed throughput.
func (s Summary) RequestsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Total) / s.Elapsed.Seconds()
}

// NewRecorder creates an empty recorder; the elapsed clock starts now.
func NewRecorder() *Recorder {
	return &Recorder{
		hist:    hdrhistogram.New(histMin, histMax, histSigFigs),
		byKind:  make(map[string]int64),
		started: time.Now(),
	}
}

// Record adds one request. A non-nil err counts as a failure, grouped by its
// pipeline kind, "schemaMismatch" for schema violations or "other".
func (r *Recorder) Record(d time.Duration, err error) {
	micros := d.Microseconds()
	if micros < histMin {
		micros = histMin
	}
	if micros > histMax {
		micros = histMax
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// RecordValue only fails outside the range, which is clamped above.
	_ = r.hist.RecordValue(micros)
	r.total++
	if err != nil {
		r.failed++
		r.byKind[kindOf(err)]++
	}
}

// Summary returns the current aggregate. Failures are sorted by count, then kind.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Total:   r.total,
		Failed:  r.failed,
		Elapsed: time.Since(r.started),
	}
	if r.total > 0 {
		s.Min = micros(r.hist.Min())
		s.Max = micros(r.hist.Max())
		s.Mean = time.Duration(r.hist.Mean() * float64(time.Microsecond))
		s.P50 = micros(r.hist.ValueAtQuantile(50))
		s.P90 = micros(r.hist.ValueAtQuantile(90))
		s.P99 = micros(r.hist.ValueAtQuantile(99))
	}

	for kind, n := range r.byKind {
		s.Failures = append(s.Failures, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(s.Failures, func(i, j int) bool {
		if s.Failures[i].Count != s.Failures[j].Count {
			return s.Failures[i].Count > s.Failures[j].Count
		}
		return s.Failures[i].Kind < s.Failures[j].Kind
	})
	return s
}

func kindOf(err error) string {
	if k := rchttp.KindOf(err); k != 0 {
		return k.String()
	}
	var verrs jsonschema.ValidationErrors
	if errors.As(err, &verrs) {
		return "schemaMismatch"
	}
	return "other"
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
