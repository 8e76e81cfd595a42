package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/configuration"
	"github.com/clearchange/moc-tracker/pkg/middleware"
	"github.com/clearchange/moc-tracker/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger),
		middleware.WithPool(options.Pool),
		middleware.RequestParams(),
	}
	srv := server.NewHTTPServer(options.Application, middlewares...)
	srv.AllowedOrigins = options.Configuration.AllowedOrigins
	return srv, nil
}
