// Package scripts holds the built-in effect behaviours.
package scripts

import (
	"fmt"

	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

const (
	Draw          effects.ScriptID = "draw"
	KO            effects.ScriptID = "ko"
	PowerModify   effects.ScriptID = "power_modify"
	RestTarget    effects.ScriptID = "rest_target"
	ActivateCard  effects.ScriptID = "activate_target"
	ReturnToHand  effects.ScriptID = "return_to_hand"
	AddDon        effects.ScriptID = "add_don"
	TrashFromHand effects.ScriptID = "trash_from_hand"
	PlayFromHand  effects.ScriptID = "play_from_hand"
)

// All returns every built-in script.
func All() []effects.Script {
	return []effects.Script{
		effects.TypedScript[CountParams]{Name: Draw, Defaults: CountParams{Count: 1}, Fn: draw},
		targeted(KO, opponentCharacters(1), moveTargets(rules.ZoneTrash)),
		targeted(ReturnToHand, opponentCharacters(1), moveTargets(rules.ZoneHand)),
		targeted(RestTarget, opponentCharacters(1), patchTargets(func(state.Card, TargetParams) state.CardPatch { return state.Rest() })),
		targeted(ActivateCard, ownBoard(1), patchTargets(func(state.Card, TargetParams) state.CardPatch { return state.Activate() })),
		targeted(PowerModify, ownBoard(1).withAmount(1000), powerModify),
		targeted(PlayFromHand, ownHand(1), playFromHand),
		effects.TypedScript[DonParams]{Name: AddDon, Defaults: DonParams{Count: 1}, Fn: addDon},
		effects.TypedScript[CountParams]{Name: TrashFromHand, Defaults: CountParams{Count: 1}, Fn: trashFromHand},
	}
}

// NewRegistry returns a registry holding every built-in script.
func NewRegistry() *effects.Registry {
	return effects.NewRegistry(All()...)
}

func targeted(id effects.ScriptID, defaults TargetParams, fn func(*effects.Context, effects.Instance, TargetParams) error) effects.TypedScript[TargetParams] {
	return effects.TypedScript[TargetParams]{
		Name:     id,
		Defaults: defaults,
		Fn:       fn,
		Input: func(_ effects.Instance, p TargetParams) *targeting.Requirement {
			return p.Requirement()
		},
	}
}

func ownBoard(count int) TargetParams {
	return TargetParams{Side: targeting.SideSelf, MaxCost: -1, MaxPower: -1, Count: count, UpTo: true}
}

func ownHand(count int) TargetParams {
	p := ownBoard(count)
	p.Zone = rules.ZoneHand
	p.Category = state.CategoryCharacter
	return p
}

func (p TargetParams) withAmount(n int) TargetParams {
	p.Amount = n
	return p
}

// current returns the cards still where the targets were chosen. Targets that
// moved since are skipped.
func current(board state.Reader, targets []targeting.Target, logger *zap.Logger) []state.Card {
	var cards []state.Card
	for _, t := range targets {
		if t.Kind != targeting.KindCard {
			continue
		}
		card, ok := board.GetCard(t.CardID)
		if !ok || card.Zone != t.Zone {
			logger.Debug("skipping stale target", zap.String("card_id", t.CardID))
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func draw(ctx *effects.Context, inst effects.Instance, p CountParams) error {
	drawn, err := ctx.Board.Draw(inst.Controller, p.Count)
	if err != nil {
		return err
	}
	ctx.Logger.Debug("drew cards",
		zap.String("player_id", inst.Controller),
		zap.Int("count", len(drawn)))
	return nil
}

func moveTargets(to rules.Zone) func(*effects.Context, effects.Instance, TargetParams) error {
	return func(ctx *effects.Context, inst effects.Instance, _ TargetParams) error {
		for _, card := range current(ctx.Board, inst.Targets, ctx.Logger) {
			if err := ctx.Board.MoveCard(card.ID, to); err != nil {
				return fmt.Errorf("move %s to %s: %w", card.ID, to, err)
			}
		}
		return nil
	}
}

func patchTargets(patch func(state.Card, TargetParams) state.CardPatch) func(*effects.Context, effects.Instance, TargetParams) error {
	return func(ctx *effects.Context, inst effects.Instance, p TargetParams) error {
		for _, card := range current(ctx.Board, inst.Targets, ctx.Logger) {
			if err := ctx.Board.UpdateCard(card.ID, patch(card, p)); err != nil {
				return err
			}
		}
		return nil
	}
}

// powerModify changes the power of the targets, or of the source when the
// instance has no targets.
func powerModify(ctx *effects.Context, inst effects.Instance, p TargetParams) error {
	cards := current(ctx.Board, inst.Targets, ctx.Logger)
	if len(inst.Targets) == 0 {
		source, ok := ctx.Board.GetCard(inst.SourceID)
		if !ok {
			return fmt.Errorf("%w: %s", state.ErrCardNotFound, inst.SourceID)
		}
		cards = []state.Card{source}
	}
	for _, card := range cards {
		if err := ctx.Board.UpdateCard(card.ID, state.AddPower(card.PowerBonus+p.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// playFromHand puts the targets onto the board and raises a card-played
// event for each, which fires their on-play triggers.
func playFromHand(ctx *effects.Context, inst effects.Instance, _ TargetParams) error {
	for _, card := range current(ctx.Board, inst.Targets, ctx.Logger) {
		to := rules.ZoneCharacter
		if card.Category == state.CategoryStage {
			to = rules.ZoneStage
		}
		if err := ctx.Board.MoveCard(card.ID, to); err != nil {
			return err
		}
		evt := rules.NewEvent(rules.EventCardPlayed, card.ID, card.Owner)
		evt.SourceName = card.Name
		evt.Zone = to
		ctx.Raise(evt)
	}
	return nil
}

func addDon(ctx *effects.Context, inst effects.Instance, p DonParams) error {
	if p.Count <= 0 {
		return nil
	}
	deck := state.CardsIn(ctx.Board, inst.Controller, rules.ZoneDonDeck)
	if p.Count < len(deck) {
		deck = deck[:p.Count]
	}
	for _, don := range deck {
		if err := ctx.Board.MoveCard(don.ID, rules.ZoneCostArea); err != nil {
			return err
		}
		if p.Rested {
			if err := ctx.Board.UpdateCard(don.ID, state.Rest()); err != nil {
				return err
			}
		}
	}
	return nil
}

func trashFromHand(ctx *effects.Context, inst effects.Instance, p CountParams) error {
	if p.Count <= 0 {
		return nil
	}
	hand := state.CardsIn(ctx.Board, inst.Controller, rules.ZoneHand)
	if p.Count < len(hand) {
		hand = hand[:p.Count]
	}
	for _, card := range hand {
		if err := ctx.Board.MoveCard(card.ID, rules.ZoneTrash); err != nil {
			return err
		}
	}
	return nil
}
