package engine

import "github.com/ivlev/slidecast/internal/config"

// Decision is the single upfront answer to "produce everything?".
type Decision int

const (
	Abort Decision = iota
	Ask
	All
)

func (d Decision) String() string {
	switch d {
	case All:
		return "all"
	case Ask:
		return "ask"
	default:
		return "abort"
	}
}

// Answer is the operator's reply to a yes/no/cancel question.
type Answer int

const (
	Cancel Answer = iota
	Yes
	No
)

// Prompter asks the operator. Implementations that cannot reach anyone
// answer Cancel, false and "".
type Prompter interface {
	Choose(question string) Answer
	Confirm(question string) bool
	Input(question string) string
}

// Silent is the Prompter for non-interactive runs.
type Silent struct{}

func (Silent) Choose(string) Answer { return Cancel }
func (Silent) Confirm(string) bool { return false }
func (Silent) Input(string) string { return "" }

// Decide reads produce.everything, or asks once when it is unset. An explicit
// "no" means confirm each stage, not abort.
func Decide(cfg *config.Config, p Prompter) Decision {
	if cfg.Has(config.KeyProduceEverything) {
		if cfg.Bool(config.KeyProduceEverything) {
			return All
		}
		return Ask
	}
	if p == nil {
		return Abort
	}
	switch p.Choose("Produce all possible files? yes: everything, no: ask for each, cancel: nothing") {
	case Yes:
		return All
	case No:
		return Ask
	default:
		return Abort
	}
}

// Gate answers per-stage "run this?" questions under one Decision.
type Gate struct {
	Decision Decision
	Config   *config.Config
	Prompt   Prompter
}

// Allow runs a stage when everything was chosen, when the operator confirms
// an unconfigured stage, or when the stage key is set to true.
func (g *Gate) Allow(key, question string) bool {
	switch g.Decision {
	case All:
		return true
	case Abort:
		return false
	}
	if !g.Config.Has(key) {
		return g.Prompt != nil && g.Prompt.Confirm(question)
	}
	return g.Config.Bool(key)
}

// AllowByDefault is for stages that run unless switched off and are never
// asked about. An explicit off holds even when everything was chosen.
func (g *Gate) AllowByDefault(key string) bool {
	if g.Decision == Abort {
		return false
	}
	return !g.Config.Has(key) || g.Config.Bool(key)
}
