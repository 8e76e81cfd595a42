package application

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clearchange/moc-tracker/pkg/eventbus"
)

// Controller registers a set of HTTP routes under its key prefix.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module wires its repositories, services and controllers into the app.
type Module interface {
	Name() string
	Register(app Application) error
}

// SeedFunc is an idempotent bootstrap routine run explicitly at startup.
type SeedFunc func(ctx context.Context, app Application) error

type Application interface {
	Pool() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger

	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}

	RegisterControllers(controllers ...Controller)
	Controllers() []Controller

	RegisterSeedFuncs(seedFuncs ...SeedFunc)
	Seed(ctx context.Context) error
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:      opts.Pool,
		eventBus:  opts.EventBus,
		logger:    opts.Logger,
		services:  map[reflect.Type]interface{}{},
		seedFuncs: []SeedFunc{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	services    map[reflect.Type]interface{}
	controllers []Controller
	seedFuncs   []SeedFunc
}

func (a *application) Pool() *pgxpool.Pool {
	return a.pool
}

func (a *application) EventPublisher() eventbus.EventBus {
	return a.eventBus
}

func (a *application) Logger() *logrus.Logger {
	return a.logger
}

// RegisterServices stores services keyed by their concrete type. Services
// must be registered as pointers.
func (a *application) RegisterServices(services ...interface{}) {
	for _, svc := range services {
		t := reflect.TypeOf(svc)
		if t.Kind() != reflect.Ptr {
			panic(fmt.Sprintf("service %T must be registered as a pointer", svc))
		}
		a.services[t.Elem()] = svc
	}
}

// Service looks a service up by zero value, e.g.
// app.Service(services.UserService{}).(*services.UserService).
func (a *application) Service(service interface{}) interface{} {
	svc, ok := a.services[reflect.TypeOf(service)]
	if !ok {
		panic(fmt.Sprintf("service %T not found", service))
	}
	return svc
}

func (a *application) RegisterControllers(controllers ...Controller) {
	a.controllers = append(a.controllers, controllers...)
}

func (a *application) Controllers() []Controller {
	return a.controllers
}

func (a *application) RegisterSeedFuncs(seedFuncs ...SeedFunc) {
	a.seedFuncs = append(a.seedFuncs, seedFuncs...)
}

func (a *application) Seed(ctx context.Context) error {
	for _, seedFunc := range a.seedFuncs {
		if err := seedFunc(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
