package pairing

import "testing"

func TestPairingFlowSymmetry(t *testing.T) {
	a := NewManager("device-a")
	b := NewManager("device-b")

	pubA, err := a.Initiate()
	if err != nil {
		t.Fatalf("a.Initiate() error = %v", err)
	}
	pubB, err := b.Initiate()
	if err != nil {
		t.Fatalf("b.Initiate() error = %v", err)
	}

	if err := a.ExchangeKeys(pubB); err != nil {
		t.Fatalf("a.ExchangeKeys() error = %v", err)
	}
	if err := b.ExchangeKeys(pubA); err != nil {
		t.Fatalf("b.ExchangeKeys() error = %v", err)
	}

	secretA, err := a.CompletePairing()
	if err != nil {
		t.Fatalf("a.CompletePairing() error = %v", err)
	}
	secretB, err := b.CompletePairing()
	if err != nil {
		t.Fatalf("b.CompletePairing() error = %v", err)
	}

	if string(secretA) != string(secretB) {
		t.Error("pairing did not converge on the same shared secret")
	}
	if a.State() != StatePaired || b.State() != StatePaired {
		t.Errorf("states = %v, %v, want both %v", a.State(), b.State(), StatePaired)
	}
}

func TestCompletePairingBeforeExchangeFails(t *testing.T) {
	m := NewManager("device-a")
	if _, err := m.Initiate(); err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if _, err := m.CompletePairing(); err != ErrNotReady {
		t.Errorf("CompletePairing() error = %v, want %v", err, ErrNotReady)
	}
}

func TestExchangeKeysBeforeInitiateFails(t *testing.T) {
	m := NewManager("device-a")
	if err := m.ExchangeKeys([]byte("peer-pub")); err != ErrNotReady {
		t.Errorf("ExchangeKeys() error = %v, want %v", err, ErrNotReady)
	}
}
