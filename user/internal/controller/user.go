package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

type UserService interface {
	Register(c context.Context, param request.Register) (response.User, error)
	Login(c context.Context, param request.Login) (response.Token, error)
	FindUserByID(c context.Context, id uuid.UUID) (response.User, error)
}

type UserController struct {
	service   UserService
	validator *validator.Validate
}

func AttachUserController(mux *mux.Router, service UserService) {
	controller := UserController{service: service, validator: validate.New()}

	router := mux.PathPrefix("/users").Subrouter()
	router.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
	router.HandleFunc("/register", controller.Register).Methods(http.MethodPost)
	router.HandleFunc("/{userId}", controller.FindUserByID).Methods(http.MethodGet)
}

func (u UserController) decodeAndValidate(c context.Context, r *http.Request, body any) error {
	c, span := otel.Tracer.Start(c, "UserController decodeAndValidate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController decodeAndValidate").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return inErrors.Wrap(inErrors.KindValidation, "invalid request body", err)
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := u.validator.StructCtx(c, body); err != nil {
		err = validate.Error(err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("validated request body")

	return nil
}

func (u UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Login").
		Logger()
	c = logger.WithContext(c)

	param := request.Login{}
	if err := u.decodeAndValidate(c, r, &param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().
		Object(log.KeyRequestBody, param).
		Str(log.KeyProcess, "login").
		Logger()

	logger.Trace().Msg("login")
	token, err := u.service.Login(logger.WithContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("login success")

	inHttp.WriteSuccess(c, w, http.StatusOK, "login success", token)
}

func (u UserController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController Register").
		Logger()
	c = logger.WithContext(c)

	param := request.Register{}
	if err := u.decodeAndValidate(c, r, &param); err != nil {
		inHttp.WriteError(c, w, err)
		return
	}
	logger = logger.With().
		Object(log.KeyRequestBody, param).
		Str(log.KeyProcess, "registering user").
		Logger()

	logger.Trace().Msg("registering user")
	user, err := u.service.Register(logger.WithContext(c), param)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Str(log.KeyUserID, user.ID.String()).Msg("registered user")

	inHttp.WriteSuccess(c, w, http.StatusCreated, "user registered", user)
}

func (u UserController) FindUserByID(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController FindUserByID")
	defer span.End()

	pathValues := mux.Vars(r)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserController FindUserByID").
		Any(log.KeyPathValues, pathValues).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing userId").Logger()
	id, err := uuid.Parse(pathValues["userId"])
	if err != nil {
		err = fmt.Errorf("failed parsing userId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, inErrors.Wrap(inErrors.KindValidation, "invalid user id", err))
		return
	}

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Trace().Msg("finding user")
	c = logger.WithContext(c)
	user, err := u.service.FindUserByID(c, id)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteError(c, w, err)
		return
	}
	logger.Info().Msg("found user")

	inHttp.WriteSuccess(c, w, http.StatusOK, "user found", user)
}
