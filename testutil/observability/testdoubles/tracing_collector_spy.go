package testdoubles

import (
	"context"
	"sync"

	"github.com/invtrail/inventory-trail-go/audittrail"
)

// SpanContextSpy records the status and attributes set on one span.
type SpanContextSpy struct {
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

func (c *SpanContextSpy) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *SpanContextSpy) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}

	c.attributes[key] = value
}

// Status returns the last status set on the span.
func (c *SpanContextSpy) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// Attributes returns a copy of all attributes set on the span.
func (c *SpanContextSpy) Attributes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return copyLabels(c.attributes)
}

// SpanRecord is one captured span with its start and finish attributes.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	FinishStatus    string
	FinishAttrs     map[string]string
	Span            *SpanContextSpy
}

// TracingCollectorSpy captures span lifecycles for inspection in tests.
type TracingCollectorSpy struct {
	spans []SpanRecord
	mu    sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, audittrail.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := &SpanContextSpy{attributes: make(map[string]string)}
	s.spans = append(s.spans, SpanRecord{
		Name:            name,
		StartAttributes: copyLabels(attrs),
		Span:            span,
	})

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx audittrail.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanContextSpy)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.spans {
		if s.spans[i].Span == span {
			s.spans[i].FinishStatus = status
			s.spans[i].FinishAttrs = copyLabels(attrs)

			break
		}
	}
}

// Spans returns a copy of all captured span records.
func (s *TracingCollectorSpy) Spans() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpanRecord(nil), s.spans...)
}

// SpanNamed returns the first captured span with the given name.
func (s *TracingCollectorSpy) SpanNamed(name string) (SpanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.spans {
		if record.Name == name {
			return record, true
		}
	}

	return SpanRecord{}, false
}

// Reset clears all captured spans.
func (s *TracingCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = s.spans[:0]
}

var _ audittrail.TracingCollector = (*TracingCollectorSpy)(nil)
