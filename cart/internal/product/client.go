package product

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/pkg/response"
)

var ErrProductNotFound = inErrors.NotFound("product not found")

type envelope struct {
	Success bool             `json:"success"`
	Data    response.Product `json:"data"`
	Message string           `json:"message"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (cl *Client) FindProduct(c context.Context, productID string) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductClient FindProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductClient FindProduct").
		Str(log.KeyProductID, productID).
		Str(log.KeyUpstream, constants.AppProductService).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "creating request").Logger()
	req, err := http.NewRequestWithContext(
		c,
		http.MethodGet,
		cl.baseURL+"/products/"+url.PathEscape(productID),
		nil,
	)
	if err != nil {
		err = fmt.Errorf("failed creating request for productId=%s with error=%w", productID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, inErrors.Internal("", err)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Set(constants.HeaderRequestID, requestID)
	}

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Debug().Msg("finding product")
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", productID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, inErrors.Downstream("product service unavailable", err)
	}
	defer resp.Body.Close()

	logger = logger.With().Int(log.KeyStatusCode, resp.StatusCode).Logger()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		logger.Debug().Msg("product not found")
		return response.Product{}, ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("failed finding productId=%s with statusCode=%d", productID, resp.StatusCode)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, inErrors.Downstream("product service unavailable", err)
	}

	logger = logger.With().Str(log.KeyProcess, "decoding product").Logger()
	body := envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = fmt.Errorf("failed decoding productId=%s with error=%w", productID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, inErrors.Downstream("product service returned an invalid response", err)
	}
	logger.Debug().Msg("found product")

	return body.Data, nil
}
