package engine

import "github.com/strovahq/challenge-engine/internal/core/domain"

// DayState is one linked habit's standing on one calendar day.
type DayState int

const (
	// StateNotDue: the habit's rule did not require a completion that day.
	// Not-due habits abstain from the day-credit vote entirely.
	StateNotDue DayState = iota
	StateUnsatisfied
	StateSatisfied
)

// Credit is the reduced verdict for a day.
type Credit int

const (
	// CreditNeutral: no linked habit was due. Neutral days never extend or
	// break a streak and stay out of the consistency denominator.
	CreditNeutral Credit = iota
	CreditMissed
	CreditEarned
)

// DayCredit reduces several habits' day states into one verdict per the
// challenge's match mode. Configuration errors (empty link set for all,
// minimum above the link count) are rejected at join time, so this switch
// can assume a valid configuration and stay total.
func DayCredit(mode domain.MatchMode, minimum int, states map[string]DayState) Credit {
	var due, satisfied int
	for _, s := range states {
		switch s {
		case StateSatisfied:
			due++
			satisfied++
		case StateUnsatisfied:
			due++
		}
	}

	if due == 0 {
		return CreditNeutral
	}

	switch mode {
	case domain.MatchSingle:
		// Exactly one linked habit exists; its state is the verdict.
		if satisfied > 0 {
			return CreditEarned
		}
		return CreditMissed
	case domain.MatchAny:
		if satisfied >= 1 {
			return CreditEarned
		}
		return CreditMissed
	case domain.MatchAll:
		if satisfied == due {
			return CreditEarned
		}
		return CreditMissed
	case domain.MatchMinimum:
		if satisfied >= minimum {
			return CreditEarned
		}
		return CreditMissed
	default:
		return CreditMissed
	}
}
