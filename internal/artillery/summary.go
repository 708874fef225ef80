package artillery

import (
	"encoding/json"
	"os"
	"strings"
)

// Summary is the normalized projection of an artillery result file.
// It is derived, not authoritative: every field defaults to zero when
// the source schema lacks it.
type Summary struct {
	RequestsTotal int            `json:"requests_total"`
	RPSAvg        float64        `json:"rps_avg"`
	Latency       Latency        `json:"latency"`
	Errors        map[string]int `json:"errors"`
}

// Latency holds response-time percentiles in milliseconds.
type Latency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ParseResults reads and parses a result file, returning the full
// structured content unmodified. It fails with *ParseError only when
// the file cannot be read or is not valid JSON.
func ParseResults(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return raw, nil
}

// projections are the known result schema shapes, tried in preference
// order. Artillery's JSON layout is not stable across its own versions;
// each projection is a pure lookup that claims the document or passes.
var projections = []func(map[string]any) (*Summary, bool){
	projectMetrics,
	projectAggregate,
}

// Summarize extracts a Summary from a result file. Schema drift inside
// valid JSON never fails it: an unrecognized shape degrades to an
// all-zero Summary.
func Summarize(path string) (*Summary, error) {
	raw, err := ParseResults(path)
	if err != nil {
		return nil, err
	}
	for _, project := range projections {
		if s, ok := project(raw); ok {
			return s, nil
		}
	}
	return &Summary{Errors: map[string]int{}}, nil
}

// projectMetrics handles the newer layout:
// metrics.http.{requests{count,rate}, response_time{p50,p95,p99}, errors{...}}.
func projectMetrics(raw map[string]any) (*Summary, bool) {
	http, ok := dig(raw, "metrics", "http")
	if !ok {
		return nil, false
	}

	s := &Summary{Errors: map[string]int{}}
	if requests, ok := dig(http, "requests"); ok {
		s.RequestsTotal = int(num(requests["count"]))
		s.RPSAvg = num(requests["rate"])
	}
	if rt, ok := dig(http, "response_time"); ok {
		s.Latency = Latency{P50: num(rt["p50"]), P95: num(rt["p95"]), P99: num(rt["p99"])}
	}
	if errors, ok := dig(http, "errors"); ok {
		for kind, count := range errors {
			s.Errors[kind] = int(num(count))
		}
	}
	return s, true
}

// projectAggregate handles the older layout:
// aggregate.{counters{"http.requests", "errors.*"}, rates{"http.request_rate"},
// summaries{"http.response_time"{p50,p95,p99}}}.
func projectAggregate(raw map[string]any) (*Summary, bool) {
	agg, ok := dig(raw, "aggregate")
	if !ok {
		return nil, false
	}

	s := &Summary{Errors: map[string]int{}}
	if counters, ok := dig(agg, "counters"); ok {
		s.RequestsTotal = int(num(counters["http.requests"]))
		for key, count := range counters {
			if kind, found := strings.CutPrefix(key, "errors."); found {
				s.Errors[kind] = int(num(count))
			}
		}
	}
	if rates, ok := dig(agg, "rates"); ok {
		s.RPSAvg = num(rates["http.request_rate"])
	}
	if summaries, ok := dig(agg, "summaries"); ok {
		if rt, ok := dig(summaries, "http.response_time"); ok {
			s.Latency = Latency{P50: num(rt["p50"]), P95: num(rt["p95"]), P99: num(rt["p99"])}
		}
	}
	return s, true
}

// dig walks nested string-keyed maps.
func dig(m map[string]any, keys ...string) (map[string]any, bool) {
	cur := m
	for _, key := range keys {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// num coerces a generic JSON value to a float64, defaulting to 0.
func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
