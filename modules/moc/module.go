package moc

import (
	corepersistence "github.com/clearchange/moc-tracker/modules/core/infrastructure/persistence"
	coreservices "github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/modules/moc/infrastructure/persistence"
	"github.com/clearchange/moc-tracker/modules/moc/presentation/controllers"
	"github.com/clearchange/moc-tracker/modules/moc/services"
	"github.com/clearchange/moc-tracker/pkg/application"
)

type Module struct{}

func NewModule() application.Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "moc"
}

func (m *Module) Register(app application.Application) error {
	requestRepo := persistence.NewChangeRequestRepository()
	departmentRepo := corepersistence.NewDepartmentRepository()
	userRepo := corepersistence.NewUserRepository()

	requestService := services.NewChangeRequestService(requestRepo, departmentRepo, app.EventPublisher())
	app.RegisterServices(
		requestService,
		services.NewExportService(requestService),
		// Registered here rather than in core: forced department deletes
		// detach change requests, so the service needs this module's store.
		coreservices.NewDepartmentService(departmentRepo, userRepo, requestRepo, app.EventPublisher()),
	)

	app.RegisterControllers(
		controllers.NewChangeRequestsController(app),
	)
	return nil
}
