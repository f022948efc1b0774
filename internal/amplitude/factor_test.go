package amplitude

import "testing"

func TestNewFactorInstanceUnknownName(t *testing.T) {
	if _, err := newFactorInstance("NoSuchFactor", nil); err == nil {
		t.Fatal("expected an error for an unregistered factory name")
	}
}

func TestFactorInstanceIdentifier(t *testing.T) {
	fi, err := newFactorInstance("Constant", []string{"1", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if fi.id != "Constant(1,2)" {
		t.Errorf("expected identifier %q, got %q", "Constant(1,2)", fi.id)
	}
}

func TestFactorInstanceUpdateParAdvancesIteration(t *testing.T) {
	fi, err := newFactorInstance("Scaled", []string{"3", "0"})
	if err != nil {
		t.Fatal(err)
	}
	if fi.iteration != 0 {
		t.Fatalf("expected initial iteration 0, got %d", fi.iteration)
	}
	fi.updatePar("unrelated")
	if fi.iteration != 0 {
		t.Errorf("expected iteration unchanged for an unrelated parameter, got %d", fi.iteration)
	}
	fi.updatePar("scale")
	if fi.iteration != 1 {
		t.Errorf("expected iteration 1 after an update affecting this factor, got %d", fi.iteration)
	}
}

func TestCoherenceMatrixSymmetry(t *testing.T) {
	c := newCoherenceMatrix(3)
	c.SetCoherent(0, 2, true)
	if !c.Coherent(0, 2) || !c.Coherent(2, 0) {
		t.Error("expected coherence to be symmetric")
	}
	if c.Coherent(0, 1) {
		t.Error("expected unset pairs to default to incoherent")
	}
}
