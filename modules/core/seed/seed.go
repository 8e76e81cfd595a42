package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/configuration"
)

// AdminUser is an idempotent bootstrap: it creates the configured admin
// account only when no user holds the email yet. Repository access is direct
// so the seed does not depend on an authenticated context.
func AdminUser(repo user.Repository) application.SeedFunc {
	return func(ctx context.Context, app application.Application) error {
		conf := configuration.Use()
		return composables.InTx(ctx, func(txCtx context.Context) error {
			if _, err := repo.GetByEmail(txCtx, conf.Bootstrap.AdminEmail); err == nil {
				return nil
			}
			entity := user.New(conf.Bootstrap.AdminEmail, conf.Bootstrap.AdminName,
				user.WithIsAdmin(true),
			)
			entity, err := entity.SetPassword(conf.Bootstrap.AdminPassword)
			if err != nil {
				return errors.Wrap(err, "failed to hash admin password")
			}
			if _, err := repo.Create(txCtx, entity); err != nil {
				return errors.Wrap(err, "failed to create admin user")
			}
			app.Logger().WithField("email", conf.Bootstrap.AdminEmail).Info("seeded admin user")
			return nil
		})
	}
}
