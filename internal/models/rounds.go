package models

// interview plan: one technical, behavioral, aptitude and system-design
// question, then the end marker
var roundPlan = []Round{RoundTechnical, RoundBehavioral, RoundAptitude, RoundSystemDesign}

// RoundForIndex returns the round and time limit (seconds) of the question
// at position index.
func RoundForIndex(index int) (Round, int) {
	if index < 0 || index >= len(roundPlan) {
		return RoundEnd, DefaultTimeLimit(RoundEnd)
	}
	r := roundPlan[index]
	return r, DefaultTimeLimit(r)
}

func DefaultTimeLimit(r Round) int {
	switch r {
	case RoundTechnical, RoundSystemDesign:
		return 180
	case RoundBehavioral, RoundAptitude:
		return 60
	default:
		return 0
	}
}
