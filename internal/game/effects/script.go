package effects

import (
	"fmt"
	"sort"

	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

// ScriptID names an effect behaviour.
type ScriptID string

// Board is the state a script may read and mutate.
type Board interface {
	state.Store
	state.ZoneMover
	Draw(playerID string, n int) ([]string, error)
}

// Context is handed to a script for the duration of one resolution.
type Context struct {
	Board   Board
	Targets *targeting.Validator
	Logger  *zap.Logger

	raise func(rules.Event)
	push  func(Instance, int)
}

// NewContext creates a script context. raise receives game events the script
// synthesizes; push places follow-up instances on the effect stack.
func NewContext(board Board, validator *targeting.Validator, logger *zap.Logger, raise func(rules.Event), push func(Instance, int)) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{Board: board, Targets: validator, Logger: logger, raise: raise, push: push}
}

// Raise reports a game event caused by the script. Triggers it fires are
// queued and resolved after the current resolution.
func (c *Context) Raise(event rules.Event) {
	if c.raise != nil {
		c.raise(event)
	}
}

// Push places an instance on the effect stack.
func (c *Context) Push(inst Instance, priority int) {
	if c.push != nil {
		c.push(inst, priority)
	}
}

// Script is an effect behaviour.
type Script interface {
	ID() ScriptID
	Run(ctx *Context, inst Instance) error
}

// InputRequirer is implemented by scripts that need targets chosen before
// they resolve. A nil requirement means no input is needed.
type InputRequirer interface {
	RequiredInput(inst Instance) *targeting.Requirement
}

// Defaulter is implemented by scripts that supply default parameters for
// definitions that do not set their own.
type Defaulter interface {
	DefaultParams() Params
}

// TypedScript is a script with a typed parameter set P.
type TypedScript[P Params] struct {
	Name     ScriptID
	Defaults P
	Fn       func(ctx *Context, inst Instance, params P) error
	Input    func(inst Instance, params P) *targeting.Requirement
}

func (s TypedScript[P]) ID() ScriptID {
	return s.Name
}

func (s TypedScript[P]) DefaultParams() Params {
	return s.Defaults
}

func (s TypedScript[P]) Run(ctx *Context, inst Instance) error {
	params, err := s.params(inst)
	if err != nil {
		return err
	}
	return s.Fn(ctx, inst, params)
}

func (s TypedScript[P]) RequiredInput(inst Instance) *targeting.Requirement {
	if s.Input == nil {
		return nil
	}
	params, err := s.params(inst)
	if err != nil {
		return nil
	}
	return s.Input(inst, params)
}

func (s TypedScript[P]) params(inst Instance) (P, error) {
	var zero P
	if inst.Params == nil {
		return s.Defaults, nil
	}
	params, ok := inst.Params.(P)
	if !ok {
		return zero, fmt.Errorf("%w: script %s wants %T, got %T", ErrParamsMismatch, s.Name, zero, inst.Params)
	}
	return params, nil
}

// Registry maps script IDs to scripts.
type Registry struct {
	scripts map[ScriptID]Script
}

// NewRegistry creates a registry holding the given scripts.
func NewRegistry(scripts ...Script) *Registry {
	r := &Registry{scripts: make(map[ScriptID]Script, len(scripts))}
	for _, s := range scripts {
		r.scripts[s.ID()] = s
	}
	return r
}

// Register adds a script. Registering an ID twice is an error.
func (r *Registry) Register(s Script) error {
	if _, exists := r.scripts[s.ID()]; exists {
		return fmt.Errorf("script %s already registered", s.ID())
	}
	r.scripts[s.ID()] = s
	return nil
}

// Lookup returns the script with the given ID.
func (r *Registry) Lookup(id ScriptID) (Script, error) {
	s, ok := r.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}
	return s, nil
}

// IDs returns the registered script IDs, sorted.
func (r *Registry) IDs() []ScriptID {
	ids := make([]ScriptID, 0, len(r.scripts))
	for id := range r.scripts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
