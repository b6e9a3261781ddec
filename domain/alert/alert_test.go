package alert

import "testing"

func TestCanTransitionAllowsDocumentedEdges(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusInvestigating, true},
		{StatusOpen, StatusResolved, false},
		{StatusOpen, StatusContacted, false},
		{StatusInvestigating, StatusResolved, true},
		{StatusInvestigating, StatusClosedFalsePositive, true},
		{StatusInvestigating, StatusContacted, true},
		{StatusInvestigating, StatusInvestigatingDisputeOpened, true},
		{StatusInvestigating, StatusOpen, false},
		{StatusResolved, StatusInvestigating, false},
		{StatusClosedFalsePositive, StatusOpen, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanTransitionRejectsUnknownFromState(t *testing.T) {
	if CanTransition(Status("BOGUS"), StatusOpen) {
		t.Fatal("expected an unknown from-state to allow no transitions")
	}
}
