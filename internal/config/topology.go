package config

import (
	"apphost/internal/models"
	"apphost/internal/topology"
)

// BuildTopology turns the declared resources and references into a graph.
func (cfg *AppConfig) BuildTopology() (*topology.Graph, error) {
	b := topology.NewBuilder()
	for _, r := range cfg.Resources {
		b.AddResource(r.Name, models.ResourceKind(r.Kind), r.Options)
	}
	for _, ref := range cfg.References {
		b.WithReference(ref.From, ref.To, models.ReferenceMode(ref.Mode))
	}
	return b.Build()
}
