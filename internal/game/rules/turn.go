package rules

import (
	"fmt"
	"strings"
)

// Phase represents the phases and battle steps of a turn.
type Phase int

const (
	PhaseRefresh Phase = iota
	PhaseDraw
	PhaseDon
	PhaseMain
	PhaseAttack
	PhaseBlock
	PhaseCounter
	PhaseDamage
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseRefresh: "REFRESH",
	PhaseDraw:    "DRAW",
	PhaseDon:     "DON",
	PhaseMain:    "MAIN",
	PhaseAttack:  "ATTACK",
	PhaseBlock:   "BLOCK",
	PhaseCounter: "COUNTER",
	PhaseDamage:  "DAMAGE",
	PhaseEnd:     "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// ParsePhase converts a phase name (case-insensitive) to a Phase.
func ParsePhase(name string) (Phase, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for phase, phaseName := range phaseNames {
		if phaseName == upper {
			return phase, nil
		}
	}
	return PhaseRefresh, fmt.Errorf("unknown phase %q", name)
}

// IsBattle reports whether the phase is one of the battle steps.
func (p Phase) IsBattle() bool {
	return p >= PhaseAttack && p <= PhaseDamage
}

// turnSequence is the phase order of a regular turn. Battle steps are entered
// explicitly when an attack is declared and are not part of the linear order.
var turnSequence = []Phase{PhaseRefresh, PhaseDraw, PhaseDon, PhaseMain, PhaseEnd}

// TurnManager tracks the turn number, the turn player and the current phase.
// It is a plain value so that state snapshots can copy it.
type TurnManager struct {
	players     []string
	activeIndex int
	turnNumber  int
	phase       Phase
}

// NewTurnManager creates a turn manager at turn 1, refresh phase, with the
// first listed player taking the turn.
func NewTurnManager(players ...string) TurnManager {
	order := make([]string, 0, len(players))
	for _, p := range players {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			order = append(order, trimmed)
		}
	}
	return TurnManager{
		players:    order,
		turnNumber: 1,
		phase:      PhaseRefresh,
	}
}

// Players returns the turn order.
func (tm TurnManager) Players() []string {
	return append([]string(nil), tm.players...)
}

// CurrentPhase returns the phase currently in progress.
func (tm TurnManager) CurrentPhase() Phase {
	return tm.phase
}

// TurnNumber returns the current turn number (1-based).
func (tm TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// ActivePlayer returns the player who currently has the turn.
func (tm TurnManager) ActivePlayer() string {
	if len(tm.players) == 0 {
		return ""
	}
	return tm.players[tm.activeIndex]
}

// Opponent returns the first player in turn order that is not playerID.
func (tm TurnManager) Opponent(playerID string) string {
	for _, p := range tm.players {
		if p != playerID {
			return p
		}
	}
	return ""
}

// SetPhase jumps directly to the given phase.
func (tm *TurnManager) SetPhase(phase Phase) {
	tm.phase = phase
}

// AdvancePhase moves to the next phase of the regular sequence. Battle steps
// return to the main phase. Advancing past the end phase starts the next turn.
func (tm *TurnManager) AdvancePhase() Phase {
	if tm.phase.IsBattle() {
		tm.phase = PhaseMain
		return tm.phase
	}
	for i, p := range turnSequence {
		if p != tm.phase {
			continue
		}
		if i == len(turnSequence)-1 {
			tm.EndTurn()
			return tm.phase
		}
		tm.phase = turnSequence[i+1]
		return tm.phase
	}
	tm.phase = PhaseMain
	return tm.phase
}

// EndTurn passes the turn to the next player and resets to the refresh phase.
func (tm *TurnManager) EndTurn() {
	if len(tm.players) > 0 {
		tm.activeIndex = (tm.activeIndex + 1) % len(tm.players)
	}
	tm.turnNumber++
	tm.phase = PhaseRefresh
}
