package modules

import "github.com/odakahirokazu/ANLNext/internal/module"

// Catalog returns a catalog of every stock module, keyed by type name.
func Catalog() *module.Catalog {
	return module.NewCatalog().MustRegister(
		NewMyModule,
		NewMyVectorModule,
		NewMyMapModule,
		NewGenerateEvents,
		NewFillHistogram,
		NewQuitAt,
		NewRecorder,
	)
}
