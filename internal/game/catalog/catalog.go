// Package catalog loads card data and the effect definitions printed on the
// cards from YAML.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/costs"
	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownCard is returned for card codes missing from the catalog.
	ErrUnknownCard = errors.New("unknown card code")
	// ErrInvalidCard is returned for malformed card or effect entries.
	ErrInvalidCard = errors.New("invalid card entry")
)

// File is the top-level YAML structure of a card catalog.
type File struct {
	Cards []CardEntry `yaml:"cards,omitempty"`
}

// CardEntry is a card as written in the catalog.
type CardEntry struct {
	Code       string        `yaml:"code,omitempty"`
	Name       string        `yaml:"name,omitempty"`
	Category   string        `yaml:"category,omitempty"`
	Colors     []string      `yaml:"colors,omitempty"`
	Cost       int           `yaml:"cost,omitempty"`
	Power      int           `yaml:"power,omitempty"`
	Counter    int           `yaml:"counter,omitempty"`
	Keywords   []string      `yaml:"keywords,omitempty"`
	Types      []string      `yaml:"types,omitempty"`
	Attributes []string      `yaml:"attributes,omitempty"`
	Effects    []EffectEntry `yaml:"effects,omitempty"`
}

// EffectEntry is an effect as written in the catalog. Kind, trigger and
// once-per-turn default to what the label says.
type EffectEntry struct {
	ID              string            `yaml:"id,omitempty"`
	Label           string            `yaml:"label,omitempty"`
	Kind            string            `yaml:"kind,omitempty"`
	Trigger         string            `yaml:"trigger,omitempty"`
	TriggerPriority int               `yaml:"trigger_priority,omitempty"`
	SelfOnly        *bool             `yaml:"self_only,omitempty"`
	OncePerTurn     *bool             `yaml:"once_per_turn,omitempty"`
	Condition       *conditionNode    `yaml:"condition,omitempty"`
	Cost            string            `yaml:"cost,omitempty"`
	Script          string            `yaml:"script,omitempty"`
	Params          map[string]string `yaml:"params,omitempty"`
	Replacement     *ReplacementEntry `yaml:"replacement,omitempty"`
}

// ReplacementEntry configures the rewrites of a replacement effect.
type ReplacementEntry struct {
	Priority int               `yaml:"priority,omitempty"`
	Scope    string            `yaml:"scope,omitempty"`
	Reduce   *ReduceEntry      `yaml:"reduce,omitempty"`
	Bind     map[string]string `yaml:"bind,omitempty"`
}

// ReduceEntry lowers one kind of cost. A negative amount raises it.
type ReduceEntry struct {
	Kind   string `yaml:"kind,omitempty"`
	Amount int    `yaml:"amount,omitempty"`
}

// Catalog holds cards and their effect definitions by card code. It
// implements effects.Provider for cards whose DefinitionCode it knows.
type Catalog struct {
	cards   map[string]CardEntry
	defs    map[string][]*effects.Definition
	scripts *effects.Registry
	labels  effects.LabelParser
	logger  *zap.Logger
}

// New creates an empty catalog. Effect scripts are resolved against
// scripts; labels are parsed with labels, or effects.ParseLabel when nil.
func New(scripts *effects.Registry, labels effects.LabelParser, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if labels == nil {
		labels = effects.LabelParserFunc(effects.ParseLabel)
	}
	return &Catalog{
		cards:   make(map[string]CardEntry),
		defs:    make(map[string][]*effects.Definition),
		scripts: scripts,
		labels:  labels,
		logger:  logger,
	}
}

// LoadFile reads a YAML catalog file into the catalog.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.Load(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load parses YAML catalog data. Either every card is added or none is.
func (c *Catalog) Load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse catalog YAML: %w", err)
	}

	cards := make(map[string]CardEntry, len(f.Cards))
	defs := make(map[string][]*effects.Definition, len(f.Cards))
	for _, entry := range f.Cards {
		code := strings.TrimSpace(entry.Code)
		if code == "" {
			return fmt.Errorf("%w: card %q has no code", ErrInvalidCard, entry.Name)
		}
		if _, dup := cards[code]; dup {
			return fmt.Errorf("%w: duplicate code %s", ErrInvalidCard, code)
		}
		if _, err := parseCategory(entry.Category); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCard, code, err)
		}
		built, err := c.buildEffects(code, entry.Effects)
		if err != nil {
			return err
		}
		cards[code] = entry
		defs[code] = built
	}

	for code, entry := range cards {
		c.cards[code] = entry
		c.defs[code] = defs[code]
	}
	c.logger.Info("loaded card catalog",
		zap.Int("cards", len(cards)),
		zap.Int("total_cards", len(c.cards)))
	return nil
}

// Definitions implements effects.Provider.
func (c *Catalog) Definitions(card state.Card) []*effects.Definition {
	return c.defs[card.DefinitionCode]
}

// Card returns the catalog entry for a code.
func (c *Catalog) Card(code string) (CardEntry, bool) {
	entry, ok := c.cards[code]
	return entry, ok
}

// Codes returns every card code, sorted.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.cards))
	for code := range c.cards {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NewCard instantiates a card record for a code.
func (c *Catalog) NewCard(code, id, owner string) (state.Card, error) {
	entry, ok := c.cards[code]
	if !ok {
		return state.Card{}, fmt.Errorf("%w: %s", ErrUnknownCard, code)
	}
	category, _ := parseCategory(entry.Category)
	return state.Card{
		ID:             id,
		DefinitionCode: code,
		Name:           entry.Name,
		Owner:          owner,
		Category:       category,
		Colors:         append([]string(nil), entry.Colors...),
		Cost:           entry.Cost,
		Power:          entry.Power,
		Counter:        entry.Counter,
		Keywords:       append([]string(nil), entry.Keywords...),
		Types:          append([]string(nil), entry.Types...),
		Attributes:     append([]string(nil), entry.Attributes...),
	}, nil
}

func (c *Catalog) buildEffects(code string, entries []EffectEntry) ([]*effects.Definition, error) {
	defs := make([]*effects.Definition, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			entry.ID = fmt.Sprintf("%s-%d", code, i+1)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("%w: %s: duplicate effect id %s", ErrInvalidCard, code, entry.ID)
		}
		seen[entry.ID] = true

		def, err := c.buildEffect(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidCard, code, entry.ID, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (c *Catalog) buildEffect(entry EffectEntry) (*effects.Definition, error) {
	info := c.labels.Parse(entry.Label)
	def := &effects.Definition{
		ID:              entry.ID,
		Label:           entry.Label,
		Kind:            info.Kind,
		Trigger:         info.Trigger,
		TriggerPriority: entry.TriggerPriority,
		OncePerTurn:     info.OncePerTurn,
		Script:          effects.ScriptID(entry.Script),
	}

	if entry.Kind != "" {
		kind, err := effects.ParseTimingKind(entry.Kind)
		if err != nil {
			return nil, err
		}
		def.Kind = kind
	}
	if entry.Trigger != "" {
		timing, err := rules.ParseTriggerTiming(entry.Trigger)
		if err != nil {
			return nil, err
		}
		def.Trigger = timing
		if entry.Kind == "" {
			def.Kind = effects.KindAuto
		}
	}
	if entry.Replacement != nil && def.Kind == "" {
		def.Kind = effects.KindReplacement
	}
	if def.Kind == "" {
		return nil, fmt.Errorf("no timing kind in label %q", entry.Label)
	}
	if def.Kind == effects.KindPermanent {
		return nil, fmt.Errorf("permanent effects are not supported")
	}
	if def.Kind == effects.KindAuto && def.Trigger == rules.TimingNone {
		return nil, fmt.Errorf("automatic effect without trigger")
	}
	if entry.OncePerTurn != nil {
		def.OncePerTurn = *entry.OncePerTurn
	}

	// a trigger about a card fires for its own source unless told otherwise
	def.SelfOnly = def.Trigger.HasSubject()
	if entry.SelfOnly != nil {
		def.SelfOnly = *entry.SelfOnly
	}

	cond, err := entry.Condition.build()
	if err != nil {
		return nil, err
	}
	def.Condition = cond

	if strings.TrimSpace(entry.Cost) != "" {
		cost, err := costs.ParseCost(entry.Cost)
		if err != nil {
			return nil, err
		}
		def.Cost = &cost
	}

	if def.Kind == effects.KindReplacement {
		if err := buildReplacement(def, entry.Replacement); err != nil {
			return nil, err
		}
		return def, nil
	}

	if entry.Script == "" {
		return nil, fmt.Errorf("%s effect without script", def.Kind)
	}
	params, err := c.bindParams(def.Script, entry.Params)
	if err != nil {
		return nil, err
	}
	def.Params = params
	return def, nil
}

// bindParams resolves the script and binds the entry's values over its
// defaults.
func (c *Catalog) bindParams(id effects.ScriptID, values map[string]string) (effects.Params, error) {
	if c.scripts == nil {
		if len(values) > 0 {
			return nil, fmt.Errorf("parameters for %s without a script registry", id)
		}
		return nil, nil
	}
	script, err := c.scripts.Lookup(id)
	if err != nil {
		return nil, err
	}
	defaulter, ok := script.(effects.Defaulter)
	if !ok {
		if len(values) > 0 {
			return nil, fmt.Errorf("%w: script %s takes no parameters", effects.ErrParamsMismatch, id)
		}
		return nil, nil
	}
	return defaulter.DefaultParams().Bind(values)
}

func buildReplacement(def *effects.Definition, entry *ReplacementEntry) error {
	if entry == nil {
		return fmt.Errorf("replacement effect without rewrites")
	}
	scope := effects.ScopeOwn
	if entry.Scope != "" {
		scope = effects.Scope(strings.ToUpper(strings.TrimSpace(entry.Scope)))
		switch scope {
		case effects.ScopeAll, effects.ScopeOwn, effects.ScopeOpponent, effects.ScopeSelf:
		default:
			return fmt.Errorf("unknown replacement scope %q", entry.Scope)
		}
	}
	def.ReplacementPriority = entry.Priority

	if entry.Reduce != nil {
		kind, err := costs.ParseKind(entry.Reduce.Kind)
		if err != nil {
			return err
		}
		def.RewriteCost = effects.ReduceCost(costs.Reduction{
			ID:     def.ID,
			Kind:   kind,
			Amount: entry.Reduce.Amount,
		}, scope)
	}
	if len(entry.Bind) > 0 {
		def.RewriteBody = effects.BindParams(entry.Bind, scope)
	}
	if def.RewriteCost == nil && def.RewriteBody == nil {
		return fmt.Errorf("replacement effect without rewrites")
	}
	return nil
}

func parseCategory(name string) (state.Category, error) {
	category := state.Category(strings.ToUpper(strings.TrimSpace(name)))
	switch category {
	case state.CategoryLeader, state.CategoryCharacter, state.CategoryEvent, state.CategoryStage, state.CategoryDon:
		return category, nil
	}
	return "", fmt.Errorf("unknown category %q", name)
}
