package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
)

type CartService interface {
	GetCart(c context.Context, owner request.Owner) (response.Cart, error)
	AddItem(c context.Context, owner request.Owner, param request.AddItem) (response.Cart, error)
	RemoveItem(c context.Context, owner request.Owner, param request.RemoveItem) (response.Cart, error)
	UpdateItemQuantity(c context.Context, owner request.Owner, param request.UpdateItem) (response.Cart, error)
	ClearCart(c context.Context, owner request.Owner) (response.Cart, error)
	DeleteCart(c context.Context, owner request.Owner) (string, error)
	MergeOnLogin(c context.Context, param request.Merge) (response.Cart, error)
	ExtendSession(c context.Context, sessionID string) (response.SessionExtended, error)
	SessionStatus(c context.Context, sessionID string) (response.SessionStatus, error)
}

type CartController struct {
	service   CartService
	validator *validator.Validate
}

func AttachCartController(mux *mux.Router, service CartService) {
	controller := CartController{service: service, validator: validate.New()}

	router := mux.PathPrefix("/carts").Subrouter()
	router.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	router.HandleFunc("", controller.DeleteCart).Methods(http.MethodDelete)
	router.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{productId}", controller.UpdateItemQuantity).Methods(http.MethodPut)
	router.HandleFunc("/items/{productId}", controller.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/clear", controller.ClearCart).Methods(http.MethodPost)
	router.HandleFunc("/merge", controller.MergeOnLogin).Methods(http.MethodPost)
	router.HandleFunc("/session", controller.SessionStatus).Methods(http.MethodGet)
	router.HandleFunc("/session/extend", controller.ExtendSession).Methods(http.MethodPost)
}

func ownerFromContext(c context.Context) request.Owner {
	return request.Owner{
		UserID:    auth.UserIDFromContext(c),
		SessionID: auth.SessionIDFromContext(c),
	}
}

func (t CartController) decode(c context.Context, r *http.Request, body any) error {
	c, span := otel.Tracer.Start(c, "CartController decode")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController decode").
		Str(log.KeyProcess, "decoding request body").
		Logger()

	logger.Trace().Msg("decoding request body")
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return inErrors.Wrap(inErrors.KindValidation, "invalid request body", err)
	}
	logger.Trace().Msg("decoded request body")

	return nil
}

func (t CartController) validateBody(c context.Context, body any) error {
	c, span := otel.Tracer.Start(c, "CartController validateBody")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController validateBody").
		Str(log.KeyProcess, "validating request body").
		Logger()

	logger.Trace().Msg("validating request body")
	if err := t.validator.StructCtx(c, body); err != nil {
		err = validate.Error(err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("validated request body")

	return nil
}

func (t CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController GetCart").Logger()
	c = logger.WithContext(c)

	cart, err := t.service.GetCart(c, ownerFromContext(c))
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "", response.CartData{Cart: cart})
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController AddItem").Logger()
	c = logger.WithContext(c)

	param := request.AddItem{}
	if err := t.decode(c, r, &param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}
	if err := t.validateBody(c, param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}

	cart, err := t.service.AddItem(c, ownerFromContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "item added to cart", response.CartData{Cart: cart})
}

func (t CartController) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateItemQuantity")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateItemQuantity").
		Any(log.KeyPathValues, pathValues).
		Logger()
	c = logger.WithContext(c)

	param := request.UpdateItem{}
	if err := t.decode(c, r, &param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}
	param.ProductID = pathValues["productId"]
	if err := t.validateBody(c, param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}

	cart, err := t.service.UpdateItemQuantity(c, ownerFromContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "cart item updated", response.CartData{Cart: cart})
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController RemoveItem").
		Any(log.KeyPathValues, pathValues).
		Logger()
	c = logger.WithContext(c)

	param := request.RemoveItem{ProductID: pathValues["productId"]}
	if err := t.validateBody(c, param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}

	cart, err := t.service.RemoveItem(c, ownerFromContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "item removed from cart", response.CartData{Cart: cart})
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController ClearCart").Logger()
	c = logger.WithContext(c)

	cart, err := t.service.ClearCart(c, ownerFromContext(c))
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "cart cleared", response.CartData{Cart: cart})
}

func (t CartController) DeleteCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController DeleteCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController DeleteCart").Logger()
	c = logger.WithContext(c)

	message, err := t.service.DeleteCart(c, ownerFromContext(c))
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, message, nil)
}

// MergeOnLogin needs both a verified user and the anonymous session header.
func (t CartController) MergeOnLogin(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController MergeOnLogin")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController MergeOnLogin").Logger()
	c = logger.WithContext(c)

	owner := ownerFromContext(c)
	if owner.UserID == "" {
		err := inErrors.ErrEmptyAuth
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	param := request.Merge{UserID: owner.UserID, SessionID: owner.SessionID}
	if err := t.validateBody(c, param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}

	cart, err := t.service.MergeOnLogin(c, param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "session cart merged", response.CartData{Cart: cart})
}

func (t CartController) ExtendSession(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ExtendSession")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController ExtendSession").Logger()
	c = logger.WithContext(c)

	res, err := t.service.ExtendSession(c, auth.SessionIDFromContext(c))
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	message := "session extended"
	if !res.Extended {
		message = "session has no cart"
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, message, res)
}

func (t CartController) SessionStatus(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController SessionStatus")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "CartController SessionStatus").Logger()
	c = logger.WithContext(c)

	res, err := t.service.SessionStatus(c, auth.SessionIDFromContext(c))
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	inHttp.WriteSuccess(c, w, http.StatusOK, "", res)
}
