package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InterventionType identifies the kind of prompt shown to the user.
type InterventionType int

const (
	InterventionBreathing InterventionType = iota
	InterventionReflection
	InterventionActivity
	InterventionReminder
)

func (t InterventionType) String() string {
	switch t {
	case InterventionBreathing:
		return "breathing"
	case InterventionReflection:
		return "reflection"
	case InterventionActivity:
		return "activity"
	case InterventionReminder:
		return "reminder"
	default:
		return "unknown"
	}
}

// ParseInterventionType converts a settings string to its closed variant.
func ParseInterventionType(s string) (InterventionType, error) {
	switch s {
	case "breathing":
		return InterventionBreathing, nil
	case "reflection":
		return InterventionReflection, nil
	case "activity":
		return InterventionActivity, nil
	case "reminder":
		return InterventionReminder, nil
	default:
		return 0, fmt.Errorf("unknown intervention type %q", s)
	}
}

// InterventionFrequency is the user-configured appetite for interruptions.
type InterventionFrequency int

const (
	FrequencyLow InterventionFrequency = iota
	FrequencyMedium
	FrequencyHigh
)

func (f InterventionFrequency) String() string {
	switch f {
	case FrequencyLow:
		return "low"
	case FrequencyHigh:
		return "high"
	default:
		return "medium"
	}
}

// UserChoice is the user's response to a shown intervention.
type UserChoice int

const (
	ChoiceContinue UserChoice = iota
	ChoiceQuit
	ChoiceSkip
)

func (c UserChoice) String() string {
	switch c {
	case ChoiceQuit:
		return "quit"
	case ChoiceSkip:
		return "skip"
	default:
		return "continue"
	}
}

// DecisionSource records how the selector chose an intervention type.
type DecisionSource int

const (
	SourceRuleBased DecisionSource = iota
	SourceHistorical
	SourceColdStart
)

func (s DecisionSource) String() string {
	switch s {
	case SourceHistorical:
		return "historical"
	case SourceColdStart:
		return "cold_start"
	default:
		return "rule_based"
	}
}

// ScoreLevel buckets an opportunity score.
type ScoreLevel int

const (
	LevelPoor ScoreLevel = iota
	LevelModerate
	LevelGood
	LevelExcellent
)

func (l ScoreLevel) String() string {
	switch l {
	case LevelExcellent:
		return "excellent"
	case LevelGood:
		return "good"
	case LevelModerate:
		return "moderate"
	default:
		return "poor"
	}
}

// BurdenLevel classifies how intrusive an intervention should be.
type BurdenLevel int

const (
	BurdenLow BurdenLevel = iota
	BurdenModerate
	BurdenHigh
	BurdenCritical
)

func (b BurdenLevel) String() string {
	switch b {
	case BurdenModerate:
		return "moderate"
	case BurdenHigh:
		return "high"
	case BurdenCritical:
		return "critical"
	default:
		return "low"
	}
}

// FrictionLevel is how much effort dismissing an intervention takes.
// Gentle permits an instant dismiss; Firm requires an explicit quit/continue
// choice before dismiss becomes available.
type FrictionLevel int

const (
	FrictionGentle FrictionLevel = iota
	FrictionModerate
	FrictionFirm
)

func (f FrictionLevel) String() string {
	switch f {
	case FrictionModerate:
		return "moderate"
	case FrictionFirm:
		return "firm"
	default:
		return "gentle"
	}
}

// Persona is a coarse usage archetype detected from live and baseline signals.
type Persona int

const (
	PersonaUnknown Persona = iota
	PersonaFrequentChecker
	PersonaBingeUser
	PersonaNightOwl
	PersonaSteady
)

func (p Persona) String() string {
	switch p {
	case PersonaFrequentChecker:
		return "frequent_checker"
	case PersonaBingeUser:
		return "binge_user"
	case PersonaNightOwl:
		return "night_owl"
	case PersonaSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// OpportunityScore is the 0-100 estimate of how appropriate the current
// moment is for intervening, with its bucketed level.
type OpportunityScore struct {
	Value float64    `json:"value"`
	Level ScoreLevel `json:"level"`
}

// InterventionPlan is the decision returned to the UI layer. Intervene=false
// is the explicit "do not interrupt" outcome.
type InterventionPlan struct {
	ID        uuid.UUID        `json:"id"`
	AppID     string           `json:"appId"`
	Intervene bool             `json:"intervene"`
	Type      InterventionType `json:"type"`
	Variant   int              `json:"variant"`
	Burden    BurdenLevel      `json:"burden"`
	Friction  FrictionLevel    `json:"friction"`
	Score     OpportunityScore `json:"score"`
	Source    DecisionSource   `json:"source"`
	Persona   Persona          `json:"persona"`
	CreatedAt time.Time        `json:"createdAt"`
}

// InterventionResult is the append-only analytics record of one shown
// intervention and the user's response. Immutable once written.
type InterventionResult struct {
	ID                   uuid.UUID        `json:"id"`
	AppID                string           `json:"appId"`
	Type                 InterventionType `json:"type"`
	Variant              int              `json:"variant"`
	Choice               UserChoice       `json:"choice"`
	ResponseLatency      time.Duration    `json:"responseLatency"`
	PostInterventionUsage time.Duration   `json:"postInterventionUsage"`
	HourOfDay            int              `json:"hourOfDay"`
	StreakAtTime         int              `json:"streakAtTime"`
	GoalProgressAtTime   float64          `json:"goalProgressAtTime"`
	QuickReopen          bool             `json:"quickReopen"`
	Score                float64          `json:"score"`
	Level                ScoreLevel       `json:"level"`
	Persona              Persona          `json:"persona"`
	Source               DecisionSource   `json:"source"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// TypeEffectiveness is the aggregate outcome of one intervention type.
type TypeEffectiveness struct {
	Shown      int     `json:"shown"`
	Successes  int     `json:"successes"`
	Rate       float64 `json:"rate"`
	Sufficient bool    `json:"sufficient"`
}

// EffectivenessData aggregates the analytics log for the selector and for
// reporting. BestHourBucket is -1 when no bucket has enough samples.
type EffectivenessData struct {
	TotalShown    int                                    `json:"totalShown"`
	SuccessCount  int                                    `json:"successCount"`
	SuccessRate   float64                                `json:"successRate"`
	QuitRate      float64                                `json:"quitRate"`
	SkipRate      float64                                `json:"skipRate"`
	ContinueRate  float64                                `json:"continueRate"`
	PerType       map[InterventionType]TypeEffectiveness `json:"perType"`
	BestHourBucket int                                   `json:"bestHourBucket"`
}
