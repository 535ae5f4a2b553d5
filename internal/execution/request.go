package execution

import (
	"fmt"

	"github.com/CZERTAINLY/Testbed/internal/model"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Request is a single planned test execution. All fields are set on
// construction and are read only afterwards.
type Request struct {
	id          uuid.UUID
	description string
	platform    suite.Platform
	tree        suite.Component
	guiOnly     bool
	networkOnly bool
}

type Option func(*Request)

// WithGUIOnly marks a request as restricted to GUI tests
func WithGUIOnly() Option {
	return func(r *Request) {
		r.guiOnly = true
	}
}

// WithNetworkOnly marks a request as restricted to Network tests
func WithNetworkOnly() Option {
	return func(r *Request) {
		r.networkOnly = true
	}
}

// WithID overrides a generated request identifier
func WithID(id uuid.UUID) Option {
	return func(r *Request) {
		r.id = id
	}
}

// NewRequest returns a request owning the tree
func NewRequest(description string, platform suite.Platform, tree suite.Component, opts ...Option) *Request {
	r := &Request{
		id:          uuid.New(),
		description: description,
		platform:    platform,
		tree:        tree,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Request) ID() uuid.UUID {
	return r.id
}

func (r *Request) Description() string {
	return r.description
}

func (r *Request) Platform() suite.Platform {
	return r.platform
}

// Tree returns the exclusively owned test tree
func (r *Request) Tree() suite.Component {
	return r.tree
}

func (r *Request) GUIOnly() bool {
	return r.guiOnly
}

func (r *Request) NetworkOnly() bool {
	return r.networkOnly
}

func (r *Request) String() string {
	return r.description
}

// PlanInput is an operator selection of a platform and a test type
type PlanInput struct {
	Platform string `validate:"required,oneof=AIX macOS"`
	TestType string `validate:"required,oneof=GUI Network All"`
}

var validate = validator.New()

// Plan validates the selection and builds a fresh request for it. Platform
// and test type are matched case insensitively.
func Plan(in PlanInput) (*Request, error) {
	in.Platform = string(suite.CanonicalPlatform(in.Platform))
	in.TestType = string(suite.CanonicalTestType(in.TestType))
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	platform := suite.Platform(in.Platform)
	typ := suite.TestType(in.TestType)
	tree, err := suite.Build(platform, typ)
	if err != nil {
		return nil, err
	}

	var opts []Option
	switch typ {
	case suite.GUI:
		opts = append(opts, WithGUIOnly())
	case suite.Network:
		opts = append(opts, WithNetworkOnly())
	}

	return NewRequest(
		fmt.Sprintf("%s - %s Test Execution", platform, typ),
		platform,
		tree,
		opts...,
	), nil
}
