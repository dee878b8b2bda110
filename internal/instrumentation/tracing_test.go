package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanHelpers(t *testing.T) {
	recorder := installRecorder(t)
	ctx := context.Background()

	_, span := StartSpan(ctx, "exchange")
	span.End()

	_, span = StartToolSpan(ctx, "create_event")
	SetSpanSuccess(span)
	span.End()

	_, span = StartCalendarSpan(ctx, OperationList, "primary")
	SetSpanError(span, errors.New("backend error"))
	span.End()

	_, span = StartModelSpan(ctx, "anthropic", 3)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(ended))
	}

	wantNames := []string{"exchange", "tool.create_event", "calendar.list", "model.complete"}
	for i, name := range wantNames {
		if ended[i].Name() != name {
			t.Errorf("span %d name = %q, want %q", i, ended[i].Name(), name)
		}
	}
	if ended[1].Status().Code != codes.Ok {
		t.Errorf("tool span status = %v, want Ok", ended[1].Status().Code)
	}
	if ended[2].Status().Code != codes.Error {
		t.Errorf("calendar span status = %v, want Error", ended[2].Status().Code)
	}
}

func TestSetSpanError_NilIsNoop(t *testing.T) {
	recorder := installRecorder(t)
	_, span := StartSpan(context.Background(), "noop")
	SetSpanError(span, nil)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want Unset", got)
	}
}

func TestGetTraceID(t *testing.T) {
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("expected empty trace id, got %q", got)
	}

	installRecorder(t)
	ctx, span := StartSpan(context.Background(), "traced")
	defer span.End()
	if GetTraceID(ctx) == "" {
		t.Error("expected trace id inside a recording span")
	}
}
