// Package metrics keeps process-wide counters for the breaker service and
// renders them in the Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type collector interface {
	write(sb *strings.Builder)
}

// series holds one value per label combination. Keys are label values
// joined with a unit separator.
type series struct {
	name   string
	help   string
	kind   string
	labels []string
}

func (s series) key(values []string) string {
	if len(values) != len(s.labels) {
		panic(fmt.Sprintf("%s: expected %d labels, got %d", s.name, len(s.labels), len(values)))
	}
	return strings.Join(values, "\x1f")
}

// labelPairs renders {a="x",b="y"} with extra appended verbatim.
func (s series) labelPairs(key string, extra string) string {
	if len(s.labels) == 0 && extra == "" {
		return ""
	}
	var parts []string
	if len(s.labels) > 0 {
		for i, v := range strings.Split(key, "\x1f") {
			parts = append(parts, s.labels[i]+`="`+escapeLabel(v)+`"`)
		}
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (s series) header(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", s.name, s.help, s.name, s.kind)
}

type valueVec struct {
	series
	mu     sync.RWMutex
	values map[string]float64
}

func newCounterVec(name, help string, labels ...string) *valueVec {
	return &valueVec{series: series{name, help, "counter", labels}, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels ...string) *valueVec {
	return &valueVec{series: series{name, help, "gauge", labels}, values: make(map[string]float64)}
}

func (v *valueVec) add(delta float64, values ...string) {
	k := v.key(values)
	v.mu.Lock()
	v.values[k] += delta
	v.mu.Unlock()
}

func (v *valueVec) get(values ...string) float64 {
	k := v.key(values)
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[k]
}

func (v *valueVec) write(sb *strings.Builder) {
	v.header(sb)
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, k := range sortedKeys(v.values) {
		fmt.Fprintf(sb, "%s%s %g\n", v.name, v.labelPairs(k, ""), v.values[k])
	}
}

type histogramVec struct {
	series
	buckets []float64
	mu      sync.RWMutex
	values  map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogramVec(name, help string, buckets []float64, labels ...string) *histogramVec {
	return &histogramVec{
		series:  series{name, help, "histogram", labels},
		buckets: buckets,
		values:  make(map[string]*histogramValue),
	}
}

func (h *histogramVec) observe(sample float64, values ...string) {
	k := h.key(values)
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.values[k]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(h.buckets)+1)}
		h.values[k] = entry
	}
	entry.sum += sample
	entry.total++
	i := sort.SearchFloat64s(h.buckets, sample)
	entry.counts[i]++
}

func (h *histogramVec) write(sb *strings.Builder) {
	h.header(sb)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		entry := h.values[k]
		var cumulative uint64
		for i, upper := range h.buckets {
			cumulative += entry.counts[i]
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, h.labelPairs(k, fmt.Sprintf(`le="%g"`, upper)), cumulative)
		}
		cumulative += entry.counts[len(h.buckets)]
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, h.labelPairs(k, `le="+Inf"`), cumulative)
		fmt.Fprintf(sb, "%s_sum%s %g\n", h.name, h.labelPairs(k, ""), entry.sum)
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, h.labelPairs(k, ""), entry.total)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	rpcRequests = newCounterVec("xorbreak_rpc_requests_total", "RPC requests handled, by method.", "method")
	rpcErrors   = newCounterVec("xorbreak_rpc_errors_total", "RPC requests that returned a non-OK status.", "method", "code")
	rpcLatency  = newHistogramVec("xorbreak_rpc_duration_seconds", "Time spent serving RPC requests.", latencyBuckets, "method", "code")
	inflight    = newGaugeVec("xorbreak_rpc_inflight_requests", "RPC requests currently being served.")
	breaks      = newCounterVec("xorbreak_breaks_total", "Completed break operations, by kind.", "operation")
	keyLengths  = newHistogramVec("xorbreak_recovered_key_length", "Length of recovered repeating keys.", []float64{1, 2, 4, 8, 16, 24, 32, 40}, "operation")

	collectors = []collector{rpcRequests, rpcErrors, rpcLatency, inflight, breaks, keyLengths}

	totalRequests uint64
)

// Handler serves every metric in the Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range collectors {
			c.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// RecordRPCRequest counts a request for method and marks it in flight. The
// returned func must be called with the final status code.
func RecordRPCRequest(method string) func(code string) {
	start := time.Now()
	rpcRequests.add(1, method)
	inflight.add(1)
	atomic.AddUint64(&totalRequests, 1)
	return func(code string) {
		inflight.add(-1)
		rpcLatency.observe(time.Since(start).Seconds(), method, code)
		if code != "OK" {
			rpcErrors.add(1, method, code)
		}
	}
}

// RecordBreak counts a completed break. keyLength is observed when positive.
func RecordBreak(operation string, keyLength int) {
	breaks.add(1, operation)
	if keyLength > 0 {
		keyLengths.observe(float64(keyLength), operation)
	}
}

// Breaks returns the number of completed breaks of one kind.
func Breaks(operation string) float64 {
	return breaks.get(operation)
}

// TotalRequests returns the number of RPC requests served since start.
func TotalRequests() uint64 {
	return atomic.LoadUint64(&totalRequests)
}
