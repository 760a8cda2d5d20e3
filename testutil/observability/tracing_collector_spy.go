package observability

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// SpySpanContext is the SpanContext handed out by TracingCollectorSpy.
type SpySpanContext struct {
	name       string
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attributes[key] = value
}

// SpySpanRecord represents one finished span.
type SpySpanRecord struct {
	Name       string
	Status     string
	StartAttrs map[string]string
	EndAttrs   map[string]string
	SpanAttrs  map[string]string
}

// TracingCollectorSpy captures spans for testing.
type TracingCollectorSpy struct {
	started  map[*SpySpanContext]map[string]string
	finished []SpySpanRecord
	mu       sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{
		started:  make(map[*SpySpanContext]map[string]string),
		finished: make([]SpySpanRecord, 0),
	}
}

func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, availability.SpanContext) {
	span := &SpySpanContext{name: name, attributes: make(map[string]string)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[span] = maps.Clone(attrs)

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx availability.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	span.mu.Lock()
	spanAttrs := maps.Clone(span.attributes)
	span.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.finished = append(s.finished, SpySpanRecord{
		Name:       span.name,
		Status:     status,
		StartAttrs: s.started[span],
		EndAttrs:   maps.Clone(attrs),
		SpanAttrs:  spanAttrs,
	})
	delete(s.started, span)
}

// GetSpanRecords returns a copy of all finished spans.
func (s *TracingCollectorSpy) GetSpanRecords() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpySpanRecord, len(s.finished))
	copy(records, s.finished)

	return records
}

// OpenSpanCount returns the number of started but not finished spans.
func (s *TracingCollectorSpy) OpenSpanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.started)
}

// SpanRecordMatcher provides a fluent interface for checking span records.
type SpanRecordMatcher struct {
	candidates []SpySpanRecord
}

// HasSpan starts a fluent chain matching all finished spans with the given name.
func (s *TracingCollectorSpy) HasSpan(name string) *SpanRecordMatcher {
	m := &SpanRecordMatcher{}

	for _, record := range s.GetSpanRecords() {
		if record.Name == name {
			m.candidates = append(m.candidates, record)
		}
	}

	return m
}

func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.keep(func(r SpySpanRecord) bool { return r.Status == status })
}

func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(r SpySpanRecord) bool { return r.StartAttrs[key] == value })
}

func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.keep(func(r SpySpanRecord) bool { return r.EndAttrs[key] == value })
}

func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func (m *SpanRecordMatcher) keep(match func(SpySpanRecord) bool) *SpanRecordMatcher {
	kept := make([]SpySpanRecord, 0, len(m.candidates))

	for _, record := range m.candidates {
		if match(record) {
			kept = append(kept, record)
		}
	}

	return &SpanRecordMatcher{candidates: kept}
}
