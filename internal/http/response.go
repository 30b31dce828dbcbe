package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type ErrorBody struct {
	Kind    inErrors.Kind `json:"kind"`
	Message string        `json:"message"`
}

// Response is the envelope every service writes.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func StatusFromKind(kind inErrors.Kind) int {
	switch kind {
	case inErrors.KindValidation:
		return http.StatusBadRequest
	case inErrors.KindConflict:
		return http.StatusConflict
	case inErrors.KindNotFound:
		return http.StatusNotFound
	case inErrors.KindUnauthorized:
		return http.StatusUnauthorized
	case inErrors.KindDownstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	statusCode int,
	body Response,
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "WriteJsonResponse").
		Int(log.KeyStatusCode, statusCode).
		Logger()

	w.Header().Set(constants.HeaderContentType, constants.HeaderValueJson)
	for k, v := range header {
		w.Header().Add(k, v)
	}
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msgf("failed encoding response body with error=%s", err.Error())
		return
	}
}

func WriteSuccess(c context.Context, w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJsonResponse(c, w, nil, statusCode, Response{Success: true, Message: message, Data: data})
}

// WriteError maps err to a status code; unclassified errors get a generic message.
func WriteError(c context.Context, w http.ResponseWriter, err error) {
	kind := inErrors.KindOf(err)
	WriteJsonResponse(c, w, nil, StatusFromKind(kind), Response{
		Success: false,
		Message: inErrors.PublicMessage(err),
		Error:   &ErrorBody{Kind: kind, Message: inErrors.PublicMessage(err)},
	})
}
