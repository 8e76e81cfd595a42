package modules

import (
	"github.com/clearchange/moc-tracker/modules/core"
	"github.com/clearchange/moc-tracker/modules/moc"
	"github.com/clearchange/moc-tracker/pkg/application"
)

// BuiltInModules lists every module in load order. Core must come first:
// moc builds on its directory services.
var BuiltInModules = []application.Module{
	core.NewModule(),
	moc.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range append(BuiltInModules, externalModules...) {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
