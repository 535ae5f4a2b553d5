package suite

import (
	"context"
	"slices"
)

type Kind string

const (
	KindGroup Kind = "group"
	KindLeaf  Kind = "leaf"
)

// Step is a single entry of an execution trace
type Step struct {
	Kind  Kind
	Name  string
	Depth int
}

// Tracer receives every executed step of a tree
type Tracer interface {
	Trace(ctx context.Context, step Step)
}

// Component is a single test case (Leaf) or a named group of them (Group).
// Executing a Group traces the group itself and then every child in the
// insertion order, depth first.
type Component interface {
	Name() string
	// Add appends a child; it is a no-op for a Leaf
	Add(child Component)
	Execute(ctx context.Context, tracer Tracer)

	execute(ctx context.Context, tracer Tracer, depth int)
}

type Leaf struct {
	name string
}

func NewLeaf(name string) *Leaf {
	return &Leaf{name: name}
}

func (l *Leaf) Name() string {
	return l.name
}

// Add does nothing, a leaf can't have any children
func (l *Leaf) Add(Component) {}

func (l *Leaf) Execute(ctx context.Context, tracer Tracer) {
	l.execute(ctx, tracer, 0)
}

func (l *Leaf) execute(ctx context.Context, tracer Tracer, depth int) {
	if tracer == nil {
		return
	}
	tracer.Trace(ctx, Step{Kind: KindLeaf, Name: l.name, Depth: depth})
}

type Group struct {
	description string
	children    []Component
}

func NewGroup(description string, children ...Component) *Group {
	g := &Group{description: description}
	for _, c := range children {
		g.Add(c)
	}
	return g
}

func (g *Group) Name() string {
	return g.description
}

func (g *Group) Add(child Component) {
	if child == nil {
		return
	}
	g.children = append(g.children, child)
}

// Children returns a copy of direct children in insertion order
func (g *Group) Children() []Component {
	return slices.Clone(g.children)
}

func (g *Group) Len() int {
	return len(g.children)
}

func (g *Group) Execute(ctx context.Context, tracer Tracer) {
	g.execute(ctx, tracer, 0)
}

func (g *Group) execute(ctx context.Context, tracer Tracer, depth int) {
	if tracer != nil {
		tracer.Trace(ctx, Step{Kind: KindGroup, Name: g.description, Depth: depth})
	}
	for _, child := range g.children {
		child.execute(ctx, tracer, depth+1)
	}
}

// Leaves returns the number of leaves in the tree rooted at c
func Leaves(c Component) int {
	switch x := c.(type) {
	case *Leaf:
		return 1
	case *Group:
		n := 0
		for _, child := range x.children {
			n += Leaves(child)
		}
		return n
	default:
		return 0
	}
}
