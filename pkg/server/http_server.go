package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/clearchange/moc-tracker/pkg/application"
)

func NewHTTPServer(app application.Application, middlewares ...mux.MiddlewareFunc) *HTTPServer {
	return &HTTPServer{
		Controllers: app.Controllers(),
		Middlewares: middlewares,
	}
}

type HTTPServer struct {
	Controllers    []application.Controller
	Middlewares    []mux.MiddlewareFunc
	AllowedOrigins []string
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}
	return r
}

func (s *HTTPServer) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.Router())
}

func (s *HTTPServer) Start(socketAddress string) error {
	return http.ListenAndServe(socketAddress, s.Handler())
}
