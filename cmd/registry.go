package cmd

import (
	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/modules"
)

// NewRegistry returns a registry with every built-in module type.
func NewRegistry() *patchwork.Registry {
	r := patchwork.NewRegistry()
	modules.Register(r)
	return r
}
