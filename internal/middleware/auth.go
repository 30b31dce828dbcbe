package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

// Auth rejects requests without a valid bearer token.
func Auth(secretKey string) mux.MiddlewareFunc {
	return authenticate(secretKey, true)
}

// OptionalAuth verifies a bearer token only when one is sent, so anonymous
// session requests pass through.
func OptionalAuth(secretKey string) mux.MiddlewareFunc {
	return authenticate(secretKey, false)
}

func authenticate(secretKey string, required bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(constants.HeaderAuthorization)
			if authorization == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteError(c, w, inErrors.ErrEmptyAuth)
				return
			}

			token, ok := auth.BearerToken(authorization)
			if !ok {
				logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
				inHttp.WriteError(c, w, inErrors.ErrTokenInvalid)
				return
			}

			jwtToken, err := auth.VerifyToken(c, secretKey, token)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteError(c, w, err)
				return
			}

			c = auth.AttachJwtToken(c, jwtToken)
			logger = logger.With().Str(log.KeyUserID, auth.UserIDFromContext(c)).Logger()
			c = logger.WithContext(c)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}

// Session attaches the anonymous session id header to the request context.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(constants.HeaderSessionID)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}
		logger := zerolog.Ctx(r.Context()).With().Str(log.KeySessionID, sessionID).Logger()
		c := auth.AttachSessionID(r.Context(), sessionID)
		c = logger.WithContext(c)
		next.ServeHTTP(w, r.WithContext(c))
	})
}
