package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestShutdownOtel(t *testing.T) {
	first := errors.New("tracer shutdown failed")
	second := errors.New("meter shutdown failed")

	err := ShutdownOtel(context.Background(), []ShutdownFunc{
		func(context.Context) error { return first },
		func(context.Context) error { return nil },
		func(context.Context) error { return second },
	})

	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestShutdownOtelNoError(t *testing.T) {
	err := ShutdownOtel(context.Background(), []ShutdownFunc{
		func(context.Context) error { return nil },
	})
	assert.NoError(t, err)
}

func TestNewPropagatorFields(t *testing.T) {
	fields := NewPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "uber-trace-id")
	assert.Contains(t, fields, "ot-tracer-traceid")
}

func TestRecordErrorTagsKind(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	RecordError(fmt.Errorf("failed finding cart with error=%w", inErrors.NotFound("cart not found")), span)
	span.End()

	spans := recorder.Ended()
	assert.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(attrErrorKind, "not_found"))
	assert.Len(t, spans[0].Events(), 1)
}

func TestRecordErrorNil(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	RecordError(nil, span)
	span.End()

	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}
