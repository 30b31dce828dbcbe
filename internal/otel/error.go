package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const attrErrorKind = "error.kind"

// RecordError marks span as failed and tags it with the error kind so
// validation and not-found failures can be told apart from real faults.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	kind := attribute.String(attrErrorKind, inErrors.KindOf(err).String())
	span.SetAttributes(kind)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err, trace.WithAttributes(kind))
}
