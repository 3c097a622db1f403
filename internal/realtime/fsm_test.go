package realtime

import "testing"

func TestConnMachineFollowsLifecycle(t *testing.T) {
	m := newMachine(StateDisconnected, connTransitions)

	steps := []ConnState{StateConnecting, StateConnected, StateDisconnected}
	for _, next := range steps {
		if _, changed := m.to(next); !changed {
			t.Fatalf("transition to %s rejected", next)
		}
	}
	if got := m.current(); got != StateDisconnected {
		t.Fatalf("current() = %s, want %s", got, StateDisconnected)
	}
}

func TestConnMachineRejectsSkippedStates(t *testing.T) {
	m := newMachine(StateDisconnected, connTransitions)

	if prev, changed := m.to(StateConnected); changed {
		t.Fatalf("disconnected -> connected accepted, prev %s", prev)
	}
	if got := m.current(); got != StateDisconnected {
		t.Fatalf("current() = %s after rejected transition, want %s", got, StateDisconnected)
	}
}

func TestMachineSameStateIsNoOp(t *testing.T) {
	m := newMachine(StateConnecting, connTransitions)

	prev, changed := m.to(StateConnecting)
	if changed {
		t.Fatal("same-state transition reported a change")
	}
	if prev != StateConnecting {
		t.Fatalf("prev = %s, want %s", prev, StateConnecting)
	}
}

func TestSubMachineRecoversFromError(t *testing.T) {
	m := newMachine(SubUnsubscribed, subTransitions)

	m.to(SubSubscribing)
	if _, changed := m.to(SubError); !changed {
		t.Fatal("subscribing -> error rejected")
	}
	if _, changed := m.to(SubSubscribing); !changed {
		t.Fatal("error -> subscribing rejected")
	}
	if _, changed := m.to(SubSubscribed); !changed {
		t.Fatal("subscribing -> subscribed rejected")
	}
	if _, changed := m.to(SubUnsubscribed); !changed {
		t.Fatal("subscribed -> unsubscribed rejected")
	}
}
