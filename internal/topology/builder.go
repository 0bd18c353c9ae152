package topology

import "apphost/internal/models"

// Builder accumulates resources and references into a Graph.
// The first error sticks and is returned by Build; later calls are ignored.
type Builder struct {
	graph *Graph
	err   error
}

func NewBuilder() *Builder {
	return &Builder{graph: New()}
}

func (b *Builder) AddResource(name string, kind models.ResourceKind, options map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	d, err := NewDescriptor(name, kind, options)
	if err != nil {
		b.err = err
		return b
	}
	b.err = b.graph.AddResource(d)
	return b
}

func (b *Builder) AddDatabase(name string, options map[string]any) *Builder {
	return b.AddResource(name, models.KindDatabase, options)
}

func (b *Builder) AddProcess(name string, options map[string]any) *Builder {
	return b.AddResource(name, models.KindProcess, options)
}

func (b *Builder) WithReference(from, to string, mode models.ReferenceMode) *Builder {
	if b.err != nil {
		return b
	}
	b.err = b.graph.AddReference(from, to, mode)
	return b
}

func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.graph, nil
}
