package core

import (
	"github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence"
	"github.com/clearchange/moc-tracker/modules/core/presentation/controllers"
	"github.com/clearchange/moc-tracker/modules/core/seed"
	"github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/application"
)

type Module struct{}

func NewModule() application.Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "core"
}

func (m *Module) Register(app application.Application) error {
	userRepo := persistence.NewUserRepository()
	sessionRepo := persistence.NewSessionRepository()

	// The department service is registered by the moc module: forced
	// department deletes have to reach into the change request store.
	app.RegisterServices(
		services.NewUserService(userRepo, app.EventPublisher()),
		services.NewAuthService(userRepo, sessionRepo, app.EventPublisher()),
	)
	app.RegisterSeedFuncs(seed.AdminUser(userRepo))

	app.RegisterControllers(
		controllers.NewAuthController(app),
		controllers.NewUsersController(app),
		controllers.NewDepartmentsController(app),
	)
	return nil
}
