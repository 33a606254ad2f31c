// Package sim replays YAML scenarios against the effect engine.
package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a starting position and the actions played from it.
type Scenario struct {
	Name    string     `yaml:"name"`
	Players []string   `yaml:"players"`
	Phase   string     `yaml:"phase"`
	Cards   []CardSpec `yaml:"cards"`
	Steps   []Step     `yaml:"steps"`
}

// CardSpec places cards in the starting position. Cards with a code are
// instantiated from the catalog; the other fields describe uncatalogued
// filler. Count > 1 places that many copies with IDs suffixed -1, -2, ...
type CardSpec struct {
	ID       string   `yaml:"id"`
	Code     string   `yaml:"code"`
	Owner    string   `yaml:"owner"`
	Zone     string   `yaml:"zone"`
	Count    int      `yaml:"count"`
	Rested   bool     `yaml:"rested"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Cost     int      `yaml:"cost"`
	Power    int      `yaml:"power"`
	Keywords []string `yaml:"keywords"`
}

// Step is one action. Which fields apply depends on the action:
//
//	play      player, card
//	activate  card, effect, targets, params
//	input     targets, params (resumes the oldest effect awaiting input)
//	attack    card, target
//	block     card, target
//	counter
//	phase     phase
//	end_turn
//	move      card, zone (an external zone change)
type Step struct {
	Action  string            `yaml:"action"`
	Player  string            `yaml:"player"`
	Card    string            `yaml:"card"`
	Effect  string            `yaml:"effect"`
	Target  string            `yaml:"target"`
	Targets []string          `yaml:"targets"`
	Params  map[string]string `yaml:"params"`
	Phase   string            `yaml:"phase"`
	Zone    string            `yaml:"zone"`
	Expect  *Expect           `yaml:"expect"`
}

// Expect is checked after a step. Counts are keyed "player/ZONE".
type Expect struct {
	Error    string            `yaml:"error"`
	Counts   map[string]int    `yaml:"counts"`
	Zones    map[string]string `yaml:"zones"`
	Rested   map[string]bool   `yaml:"rested"`
	Power    map[string]int    `yaml:"power"`
	Awaiting *int              `yaml:"awaiting"`
	Events   map[string]int    `yaml:"events"`
	Turn     int               `yaml:"turn"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if len(sc.Players) < 2 {
		return nil, fmt.Errorf("scenario %q needs two players", sc.Name)
	}
	for i, step := range sc.Steps {
		if step.Action == "" {
			return nil, fmt.Errorf("scenario %q: step %d has no action", sc.Name, i+1)
		}
	}
	return &sc, nil
}
