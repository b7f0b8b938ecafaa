package enums

// SettlementRunState is the lifecycle of one monthly settlement pass.
type SettlementRunState string

const (
	SettlementRunNotStarted    SettlementRunState = "not_started"
	SettlementRunLoadingInputs SettlementRunState = "loading_inputs"
	SettlementRunAggregating   SettlementRunState = "aggregating"
	SettlementRunCommitting    SettlementRunState = "committing"
	SettlementRunCommitted     SettlementRunState = "committed"
	SettlementRunFailed        SettlementRunState = "failed"
)

var settlementRunStates = newSet("settlement run state",
	SettlementRunNotStarted,
	SettlementRunLoadingInputs,
	SettlementRunAggregating,
	SettlementRunCommitting,
	SettlementRunCommitted,
	SettlementRunFailed,
)

// settlementRunTransitions lists the forward edges of the run state machine.
// Any non-terminal state may also move to failed.
var settlementRunTransitions = map[SettlementRunState]SettlementRunState{
	SettlementRunNotStarted:    SettlementRunLoadingInputs,
	SettlementRunLoadingInputs: SettlementRunAggregating,
	SettlementRunAggregating:   SettlementRunCommitting,
	SettlementRunCommitting:    SettlementRunCommitted,
}

func (s SettlementRunState) String() string { return string(s) }

func (s SettlementRunState) IsValid() bool { return settlementRunStates.has(s) }

// IsTerminal reports whether the run has finished.
func (s SettlementRunState) IsTerminal() bool {
	return s == SettlementRunCommitted || s == SettlementRunFailed
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s SettlementRunState) CanTransitionTo(next SettlementRunState) bool {
	if s.IsTerminal() || !s.IsValid() {
		return false
	}
	if next == SettlementRunFailed {
		return true
	}
	return settlementRunTransitions[s] == next
}

func ParseSettlementRunState(value string) (SettlementRunState, error) {
	return settlementRunStates.parse(value)
}
