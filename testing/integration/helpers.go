package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zoobzio/spanz"
)

// MockCollector wraps a real collector with test utilities.
// Provides synchronous collection and verification helpers.
//
//nolint:govet // Field alignment optimized for test helper readability
type MockCollector struct {
	exported []*spanz.Trace
	*spanz.Collector
	t  *testing.T
	mu sync.Mutex
}

// NewMockCollector creates a collector for testing.
func NewMockCollector(t *testing.T, name string, bufferSize int) *MockCollector {
	collector := spanz.NewCollector(name, bufferSize)
	collector.SetSyncMode(true) // Enable synchronous collection for testing.
	t.Cleanup(collector.Close)
	return &MockCollector{
		Collector: collector,
		t:         t,
	}
}

// NewTracer creates a tracer flushing into the collector.
func (m *MockCollector) NewTracer(opts ...spanz.Option) *spanz.Tracer {
	m.t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	opts = append([]spanz.Option{spanz.WithLogger(logger)}, opts...)

	tracer, err := spanz.New(m.Collector, "integration", spanz.NewTraceID(), opts...)
	if err != nil {
		m.t.Fatalf("Failed to create tracer: %v", err)
	}
	m.t.Cleanup(tracer.Close)
	return tracer
}

// Traces returns every trace flushed so far without clearing.
func (m *MockCollector) Traces() []*spanz.Trace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.Collector.Export(); len(current) > 0 {
		m.exported = append(m.exported, current...)
	}
	all := make([]*spanz.Trace, len(m.exported))
	copy(all, m.exported)
	return all
}

// Spans returns the spans of every flushed trace in finish order.
func (m *MockCollector) Spans() []spanz.FinishedSpan {
	var spans []spanz.FinishedSpan
	for _, tr := range m.Traces() {
		spans = append(spans, tr.Spans...)
	}
	return spans
}

// AssertFlushes verifies the number of flushed traces.
func (m *MockCollector) AssertFlushes(expected int) {
	m.t.Helper()
	if got := len(m.Traces()); got != expected {
		m.t.Errorf("Expected %d flushed traces, got %d", expected, got)
	}
}

// AssertSpanNamed checks if a span with given name exists.
func (m *MockCollector) AssertSpanNamed(name string) *spanz.FinishedSpan {
	m.t.Helper()
	spans := m.Spans()
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	m.t.Errorf("Span named '%s' not found", name)
	return nil
}

// AssertParentChild verifies parent-child relationship.
func (m *MockCollector) AssertParentChild(parentName, childName string) {
	m.t.Helper()
	parent := m.AssertSpanNamed(parentName)
	child := m.AssertSpanNamed(childName)
	if parent == nil || child == nil {
		return
	}

	if child.ParentSpanID != parent.SpanID {
		m.t.Errorf("Parent-child relationship broken: %s is not parent of %s. Child ParentSpanID=%d, Parent SpanID=%d",
			parentName, childName, child.ParentSpanID, parent.SpanID)
	}
}

// SpanTree represents a hierarchical view of spans.
type SpanTree struct {
	Span     spanz.FinishedSpan
	Children []*SpanTree
}

// BuildSpanTree constructs a tree from flat span list. Spans whose parent
// is not in the list are roots.
func BuildSpanTree(spans []spanz.FinishedSpan) []*SpanTree {
	nodeMap := make(map[uint64]*SpanTree, len(spans))
	roots := make([]*SpanTree, 0)

	for i := range spans {
		nodeMap[spans[i].SpanID] = &SpanTree{Span: spans[i]}
	}

	for i := range spans {
		node := nodeMap[spans[i].SpanID]
		if parent, exists := nodeMap[spans[i].ParentSpanID]; exists && spans[i].ParentSpanID != 0 {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	return roots
}

// CountNodes returns the number of spans in the trees.
func CountNodes(trees []*SpanTree) int {
	n := 0
	for _, tree := range trees {
		n += 1 + CountNodes(tree.Children)
	}
	return n
}

// PrintSpanTree formats span tree for debugging.
func PrintSpanTree(trees []*SpanTree) string {
	var sb strings.Builder
	for _, tree := range trees {
		printTreeNode(&sb, tree, 0)
	}
	return sb.String()
}

func printTreeNode(sb *strings.Builder, node *SpanTree, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%.2fms)\n",
		indent, node.Span.Name, node.Span.Duration().Seconds()*1000)
	for _, child := range node.Children {
		printTreeNode(sb, child, depth+1)
	}
}

// ErrServiceUnavailable is returned by MockService on a scheduled failure.
var ErrServiceUnavailable = errors.New("service unavailable")

// MockService simulates an external service for integration testing.
type MockService struct {
	tracer       *spanz.Tracer
	name         string
	mu           sync.Mutex
	requestCount int
	failEvery    int
}

// NewMockService creates a simulated service.
func NewMockService(name string, tracer *spanz.Tracer) *MockService {
	return &MockService{
		name:   name,
		tracer: tracer,
	}
}

// SetFailEvery makes every nth call fail. Zero disables failures.
func (m *MockService) SetFailEvery(n int) {
	m.mu.Lock()
	m.failEvery = n
	m.mu.Unlock()
}

// Call simulates a service call with tracing.
func (m *MockService) Call(ctx context.Context, operation string) error {
	m.mu.Lock()
	m.requestCount++
	count := m.requestCount
	shouldFail := m.failEvery > 0 && count%m.failEvery == 0
	m.mu.Unlock()

	return m.tracer.RunInSpan(ctx, fmt.Sprintf("%s.%s", m.name, operation), func(ctx context.Context) error {
		err := m.tracer.AnnotateSpan(ctx, map[string]string{
			"service":       m.name,
			"request.count": fmt.Sprintf("%d", count),
		})
		if err != nil {
			return err
		}
		if shouldFail {
			return errors.Wrapf(ErrServiceUnavailable, "%s call %d", m.name, count)
		}
		return nil
	}, spanz.WithKind(spanz.KindRPCClient))
}

// RequestCount returns the number of calls made.
func (m *MockService) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}
