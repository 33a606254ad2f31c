package effects

import (
	"regexp"
	"strings"

	"github.com/grandline/opcg-server-go/internal/game/rules"
)

// LabelInfo is what an effect label such as "[Activate: Main] [Once Per Turn]"
// encodes.
type LabelInfo struct {
	Tags        []string
	Kind        TimingKind
	Trigger     rules.TriggerTiming
	Phase       rules.Phase
	HasPhase    bool
	OncePerTurn bool
}

// LabelParser parses effect labels.
type LabelParser interface {
	Parse(label string) LabelInfo
}

// LabelParserFunc adapts a function to a LabelParser.
type LabelParserFunc func(label string) LabelInfo

func (f LabelParserFunc) Parse(label string) LabelInfo {
	return f(label)
}

var labelTag = regexp.MustCompile(`\[([^\]]+)\]`)

var triggerTags = map[string]rules.TriggerTiming{
	"on play":                     rules.TimingOnPlay,
	"when attacking":              rules.TimingWhenAttacking,
	"on your opponent's attack":   rules.TimingWhenAttacked,
	"when attacked":               rules.TimingWhenAttacked,
	"on k.o.":                     rules.TimingOnKO,
	"on ko":                       rules.TimingOnKO,
	"start of your turn":          rules.TimingStartOfTurn,
	"end of your turn":            rules.TimingEndOfYourTurn,
	"end of your opponent's turn": rules.TimingEndOfOpponentTurn,
	"end of opponent's turn":      rules.TimingEndOfOpponentTurn,
	"on block":                    rules.TimingOnBlock,
	"counter":                     rules.TimingCounterStep,
}

// ParseLabel extracts timing, phase restriction and once-per-turn markers
// from the bracketed tags of a label. Unknown tags are kept in Tags only.
func ParseLabel(label string) LabelInfo {
	var info LabelInfo
	for _, match := range labelTag.FindAllStringSubmatch(label, -1) {
		tag := strings.TrimSpace(match[1])
		info.Tags = append(info.Tags, tag)
		lower := strings.ToLower(tag)

		switch {
		case lower == "once per turn":
			info.OncePerTurn = true
		case strings.HasPrefix(lower, "activate"):
			info.Kind = KindActivated
			if _, phase, ok := strings.Cut(lower, ":"); ok {
				if p, err := rules.ParsePhase(phase); err == nil {
					info.Phase = p
					info.HasPhase = true
				}
			}
		case lower == "main":
			info.Kind = KindActivated
			info.Phase = rules.PhaseMain
			info.HasPhase = true
		case lower == "replacement":
			info.Kind = KindReplacement
		case lower == "permanent" || lower == "continuous":
			info.Kind = KindPermanent
		default:
			if timing, ok := triggerTags[lower]; ok {
				info.Kind = KindAuto
				info.Trigger = timing
			}
		}
	}
	return info
}

// PhaseRestriction returns the phase the definition's label restricts
// activation to.
func (d *Definition) PhaseRestriction(parser LabelParser) (rules.Phase, bool) {
	if parser == nil {
		parser = LabelParserFunc(ParseLabel)
	}
	info := parser.Parse(d.Label)
	return info.Phase, info.HasPhase
}
