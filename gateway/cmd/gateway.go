package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/gateway/internal/proxy"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/server"
)

func routes(cfg config.Services) []proxy.Route {
	return []proxy.Route{
		{Name: constants.AppCartService, Prefix: proxy.APIPrefix + "/carts", Target: cfg.CartURL, Degrade: true},
		{Name: constants.AppProductService, Prefix: proxy.APIPrefix + "/products", Target: cfg.ProductURL},
		{Name: constants.AppUserService, Prefix: proxy.APIPrefix + "/users", Target: cfg.UserURL},
	}
}

func RunGateway(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunGateway")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppGateway).
		Str(log.KeyTag, "main RunGateway").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg, err := config.InitConfig(c, constants.AppGateway)
	if err != nil {
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := otel.InitOtelSdk(c, constants.AppGateway, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := otel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	m := metrics.New("gateway")
	router := server.NewRouter(constants.AppGateway, m)
	if err := proxy.Attach(router, routes(cfg.Services), cfg.Services.ProxyTimeout, m); err != nil {
		err = fmt.Errorf("failed attaching proxies with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("initialized router")

	c = logger.WithContext(c)
	addr := fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port)
	if err := server.Run(c, addr, router); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
}
