package tasks

import "testing"

func TestResetToStepClearsWait(t *testing.T) {
	ht := &HaulTask{Step: StepDeposit, WaitTicks: 3}
	ht.ResetToStep(StepUnloadNext)
	if ht.Step != StepUnloadNext || ht.WaitTicks != 0 {
		t.Fatalf("got step=%d wait=%d", ht.Step, ht.WaitTicks)
	}
}

func TestHauledLedgerIsASet(t *testing.T) {
	ht := &HaulTask{}
	ht.AddHauled("TH_1")
	ht.AddHauled("TH_1")
	ht.AddHauled("TH_2")
	if len(ht.HauledThings) != 2 {
		t.Fatalf("duplicate thing id admitted: %v", ht.HauledThings)
	}
	ht.RemoveHauled("TH_1")
	if len(ht.HauledThings) != 1 || ht.HauledThings[0] != "TH_2" {
		t.Fatalf("remove failed: %v", ht.HauledThings)
	}
	ht.RemoveHauled("TH_1")
	if len(ht.HauledThings) != 1 {
		t.Fatalf("double remove changed ledger: %v", ht.HauledThings)
	}
}
