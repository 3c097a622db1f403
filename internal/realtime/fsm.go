package realtime

import "sync"

// machine is a table-driven state holder. Only transitions listed for the
// current state are applied; everything else is a rejected no-op so callers
// can never corrupt lifecycle state from a late callback.
type machine[S comparable] struct {
	mu          sync.Mutex
	state       S
	transitions map[S][]S
}

func newMachine[S comparable](initial S, transitions map[S][]S) *machine[S] {
	return &machine[S]{state: initial, transitions: transitions}
}

func (m *machine[S]) current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// to applies the transition when the table allows it. Returns the previous
// state and whether the state changed; asking for the current state again is
// a silent no-op.
func (m *machine[S]) to(next S) (S, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	if prev == next {
		return prev, false
	}
	for _, allowed := range m.transitions[prev] {
		if allowed == next {
			m.state = next
			return prev, true
		}
	}
	return prev, false
}

var connTransitions = map[ConnState][]ConnState{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateDisconnected},
}

var subTransitions = map[SubState][]SubState{
	SubUnsubscribed: {SubSubscribing, SubError},
	SubSubscribing:  {SubSubscribed, SubError, SubUnsubscribed},
	SubSubscribed:   {SubUnsubscribed, SubError},
	SubError:        {SubSubscribing, SubUnsubscribed},
}
