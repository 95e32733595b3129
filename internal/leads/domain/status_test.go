package domain

import "testing"

func TestCanTransitionLegalEdges(t *testing.T) {
	legal := [][2]Status{
		{StatusNew, StatusContacted},
		{StatusContacted, StatusQualified},
		{StatusQualified, StatusViewingScheduled},
		{StatusViewingScheduled, StatusNegotiation},
		{StatusNegotiation, StatusConverted},
		{StatusNegotiation, StatusLost},
	}

	for _, edge := range legal {
		if !CanTransition(edge[0], edge[1]) {
			t.Errorf("CanTransition(%s, %s) = false, want true", edge[0], edge[1])
		}
	}
}

func TestCanTransitionRejectsEverythingElse(t *testing.T) {
	all := []Status{
		StatusNew, StatusContacted, StatusQualified,
		StatusViewingScheduled, StatusNegotiation, StatusConverted, StatusLost,
	}

	legal := map[[2]Status]bool{
		{StatusNew, StatusContacted}:                  true,
		{StatusContacted, StatusQualified}:            true,
		{StatusQualified, StatusViewingScheduled}:     true,
		{StatusViewingScheduled, StatusNegotiation}:   true,
		{StatusNegotiation, StatusConverted}:          true,
		{StatusNegotiation, StatusLost}:               true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionNoSkippingStages(t *testing.T) {
	// qualified -> converted is the canonical illegal shortcut.
	if CanTransition(StatusQualified, StatusConverted) {
		t.Error("qualified -> converted must not be a legal edge")
	}
	// lost leads have no reopening path.
	if CanTransition(StatusLost, StatusContacted) {
		t.Error("lost -> contacted must not be a legal edge")
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusNew, false},
		{StatusContacted, false},
		{StatusQualified, false},
		{StatusViewingScheduled, false},
		{StatusNegotiation, false},
		{StatusConverted, true},
		{StatusLost, true},
	}

	for _, tc := range tests {
		if got := IsTerminal(tc.status); got != tc.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	if got := NextStatuses(StatusNegotiation); len(got) != 2 {
		t.Fatalf("NextStatuses(negotiation) = %v, want two destinations", got)
	}
	if got := NextStatuses(StatusConverted); got != nil {
		t.Errorf("NextStatuses(converted) = %v, want nil", got)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-15, 0},
		{0, 0},
		{35, 35},
		{100, 100},
		{140, 100},
	}

	for _, tc := range tests {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
