package scripts

import (
	"fmt"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/effects"
	"github.com/grandline/opcg-server-go/internal/game/rules"
	"github.com/grandline/opcg-server-go/internal/game/state"
	"github.com/grandline/opcg-server-go/internal/game/targeting"
)

// CountParams is the parameter set of scripts acting on a number of cards
// without targets.
type CountParams struct {
	Count int
}

func (p CountParams) Values() map[string]string {
	return map[string]string{"count": effects.IntValue(p.Count)}
}

func (p CountParams) Bind(values map[string]string) (effects.Params, error) {
	err := effects.BindInt(values, "count", &p.Count)
	return p, err
}

// DonParams is the parameter set of AddDon.
type DonParams struct {
	Count  int
	Rested bool
}

func (p DonParams) Values() map[string]string {
	return map[string]string{"count": effects.IntValue(p.Count), "rested": fmt.Sprint(p.Rested)}
}

func (p DonParams) Bind(values map[string]string) (effects.Params, error) {
	if err := effects.BindInt(values, "count", &p.Count); err != nil {
		return p, err
	}
	err := effects.BindBool(values, "rested", &p.Rested)
	return p, err
}

// TargetParams selects the cards a targeted script acts on. MaxCost and
// MaxPower are ignored when negative.
type TargetParams struct {
	Side     targeting.Side
	Zone     rules.Zone
	Category state.Category
	MaxCost  int
	MaxPower int
	Count    int
	UpTo     bool
	// Amount is the power change of PowerModify.
	Amount int
}

func (p TargetParams) Values() map[string]string {
	return map[string]string{
		"side":      string(p.Side),
		"zone":      string(p.Zone),
		"category":  string(p.Category),
		"max_cost":  effects.IntValue(p.MaxCost),
		"max_power": effects.IntValue(p.MaxPower),
		"count":     effects.IntValue(p.Count),
		"up_to":     fmt.Sprint(p.UpTo),
		"amount":    effects.IntValue(p.Amount),
	}
}

func (p TargetParams) Bind(values map[string]string) (effects.Params, error) {
	if side, ok := values["side"]; ok {
		p.Side = targeting.Side(strings.ToUpper(side))
	}
	if zone, ok := values["zone"]; ok {
		z, err := rules.ParseZone(zone)
		if err != nil {
			return p, fmt.Errorf("%w: %v", effects.ErrParamsMismatch, err)
		}
		p.Zone = z
	}
	if category, ok := values["category"]; ok {
		p.Category = state.Category(strings.ToUpper(category))
	}
	for key, dst := range map[string]*int{
		"max_cost": &p.MaxCost, "max_power": &p.MaxPower, "count": &p.Count, "amount": &p.Amount,
	} {
		if err := effects.BindInt(values, key, dst); err != nil {
			return p, err
		}
	}
	err := effects.BindBool(values, "up_to", &p.UpTo)
	return p, err
}

// Filter returns the target filter the parameters describe.
func (p TargetParams) Filter() targeting.Filter {
	f := targeting.Filter{Controller: p.Side, Category: p.Category}
	if p.Zone != "" {
		f.Zones = []rules.Zone{p.Zone}
	}
	if p.MaxCost >= 0 {
		f.Cost = targeting.AtMost(p.MaxCost)
	}
	if p.MaxPower >= 0 {
		f.Power = targeting.AtMost(p.MaxPower)
	}
	return f
}

// Requirement returns the target requirement the parameters describe.
func (p TargetParams) Requirement() *targeting.Requirement {
	req := &targeting.Requirement{Filter: p.Filter(), Min: p.Count, Max: p.Count}
	if p.UpTo {
		req.Min = 0
	}
	return req
}

// opponentCharacters is the default selection of removal scripts.
func opponentCharacters(count int) TargetParams {
	return TargetParams{
		Side:     targeting.SideOpponent,
		Zone:     rules.ZoneCharacter,
		Category: state.CategoryCharacter,
		MaxCost:  -1,
		MaxPower: -1,
		Count:    count,
		UpTo:     true,
	}
}
