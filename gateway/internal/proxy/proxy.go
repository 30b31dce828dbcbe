package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cartRes "github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	APIPrefix = "/api"

	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"

	MessageCartUnavailable = "cart service unavailable"
)

type Route struct {
	Name   string
	Prefix string
	Target string
	// Degrade serves an empty cart for GET {Prefix} when the upstream
	// cannot be reached.
	Degrade bool
}

func newTransport(timeout time.Duration) http.RoundTripper {
	return otelhttp.NewTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	})
}

func NewProxy(route Route, timeout time.Duration, m *metrics.Metrics) (http.Handler, error) {
	target, err := url.Parse(route.Target)
	if err != nil {
		return nil, fmt.Errorf("failed parsing target of route=%s with error=%w", route.Name, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("target of route=%s must be an absolute url, got=%s", route.Name, route.Target)
	}

	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = newTransport(timeout)

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		originalHost := req.Host
		originalProto := "http"
		if req.TLS != nil {
			originalProto = "https"
		} else if xf := req.Header.Get("X-Forwarded-Proto"); xf != "" {
			originalProto = xf
		}

		req.URL.Path = strings.TrimPrefix(req.URL.Path, APIPrefix)
		if rp := req.URL.RawPath; rp != "" {
			req.URL.RawPath = strings.TrimPrefix(rp, APIPrefix)
		}
		origDirector(req)

		if req.Header.Get("X-Forwarded-Proto") == "" {
			req.Header.Set("X-Forwarded-Proto", originalProto)
		}
		if req.Header.Get("X-Forwarded-Host") == "" && originalHost != "" {
			req.Header.Set("X-Forwarded-Host", originalHost)
		}
		if requestID := log.RequestIDFromContext(req.Context()); requestID != "" {
			req.Header.Set(constants.HeaderRequestID, requestID)
		}
	}
	p.ModifyResponse = func(res *http.Response) error {
		m.ProxyRequest(route.Name, OutcomeSuccess)
		return nil
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		handleError(w, r, err, route, m)
	}

	// ErrorHandler only sees the outbound request, whose path the Director
	// already rewrote, so the inbound path is kept in the context.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.ServeHTTP(w, r.WithContext(withInboundPath(r.Context(), r.URL.Path)))
	}), nil
}

type inboundPathKey struct{}

func withInboundPath(c context.Context, path string) context.Context {
	return context.WithValue(c, inboundPathKey{}, path)
}

func inboundPath(r *http.Request) string {
	if path, ok := r.Context().Value(inboundPathKey{}).(string); ok {
		return path
	}
	return r.URL.Path
}

// degradable reports whether a failed request is a read of the whole cart.
func degradable(route Route, r *http.Request, err error) bool {
	return route.Degrade &&
		r.Method == http.MethodGet &&
		inboundPath(r) == route.Prefix &&
		isConnectFailure(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectFailure(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func handleError(w http.ResponseWriter, r *http.Request, err error, route Route, m *metrics.Metrics) {
	c, span := otel.Tracer.Start(r.Context(), "proxy handleError")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "proxy handleError").
		Str(log.KeyUpstream, route.Name).
		Str(log.KeyRequestMethod, r.Method).
		Str(log.KeyRequestURL, r.URL.String()).
		Logger()

	err = fmt.Errorf("failed proxying request to upstream=%s with error=%w", route.Name, err)
	otel.RecordError(err, span)

	switch {
	case isTimeout(err):
		m.ProxyRequest(route.Name, OutcomeTimeout)
		logger.Error().Err(err).Msg(err.Error())
		writeUpstreamError(c, w, http.StatusGatewayTimeout, route.Name+" timed out")
	case degradable(route, r, err):
		m.ProxyRequest(route.Name, OutcomeDegraded)
		logger.Warn().Err(err).Msg("serving empty cart while upstream is unreachable")
		inHttp.WriteSuccess(c, w, http.StatusOK, MessageCartUnavailable, cartRes.CartData{Cart: cartRes.EmptyCart()})
	default:
		m.ProxyRequest(route.Name, OutcomeFailure)
		logger.Error().Err(err).Msg(err.Error())
		writeUpstreamError(c, w, http.StatusBadGateway, route.Name+" unavailable")
	}
}

func writeUpstreamError(c context.Context, w http.ResponseWriter, statusCode int, message string) {
	inHttp.WriteJsonResponse(c, w, nil, statusCode, inHttp.Response{
		Success: false,
		Message: message,
		Error:   &inHttp.ErrorBody{Kind: inErrors.KindDownstream, Message: message},
	})
}

// Attach mounts every route under its prefix, matching both the prefix itself
// and everything below it.
func Attach(router *mux.Router, routes []Route, timeout time.Duration, m *metrics.Metrics) error {
	for _, route := range routes {
		handler, err := NewProxy(route, timeout, m)
		if err != nil {
			return err
		}
		router.Handle(route.Prefix, handler)
		router.PathPrefix(route.Prefix + "/").Handler(handler)
	}
	return nil
}
