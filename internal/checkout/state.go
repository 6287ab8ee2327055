package checkout

import "fmt"

// State : cycle de vie d'une empreinte de commande
type State string

const (
	StatePending       State = "PENDING"
	StateOrderVerified State = "ORDER_VERIFIED"
	StateOrderCreated  State = "ORDER_CREATED"
	StateNotified      State = "NOTIFIED"
)

var transitions = map[State][]State{
	StatePending:       {StateOrderVerified, StateOrderCreated},
	StateOrderVerified: {StateNotified},
	StateOrderCreated:  {StateNotified},
}

func (s State) canMoveTo(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// tracker garde l'état courant d'une réconciliation
type tracker struct {
	state State
}

func newTracker() *tracker {
	return &tracker{state: StatePending}
}

func (t *tracker) advance(to State) error {
	if !t.state.canMoveTo(to) {
		return fmt.Errorf("transition %s → %s interdite", t.state, to)
	}
	t.state = to
	return nil
}
