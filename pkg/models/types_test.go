package models

import (
	"testing"
)

func TestTargetIsEmpty(t *testing.T) {
	if !(&Target{TargetID: NoTarget}).IsEmpty() {
		t.Error("target -1 should be empty")
	}
	if (&Target{TargetID: 0}).IsEmpty() {
		t.Error("target 0 should not be empty")
	}
}

func TestTargetProposalHistories(t *testing.T) {
	target := &Target{
		TargetID:        12,
		ProposalIDs:     []int{1, 3},
		ProposalValues:  []float64{0.5, 0.25},
		ProposalNeeds:   []float64{0.1, 0.2},
		ProposalBonuses: []float64{0.01, 0.02},
		ProposalBoosts:  []float64{1, 2},
	}

	rows := target.ProposalHistories()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.ParentID != 12 {
			t.Errorf("row %d: expected parent 12, got %d", i, row.ParentID)
		}
		if row.ProposalID != target.ProposalIDs[i] {
			t.Errorf("row %d: proposal id %d not in target", i, row.ProposalID)
		}
	}
	if rows[1].ProposalBoost != 2 || rows[1].ProposalValue != 0.25 {
		t.Errorf("unexpected scores on second row: %+v", rows[1])
	}
}

func TestInterestedProposalShortArrays(t *testing.T) {
	ip := &InterestedProposal{ObservationID: 4, NumProposals: 2, ProposalIDs: []int{5, 6}, ProposalValues: []float64{0.3}}
	rows := ip.ProposalHistories()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].ProposalValue != 0 {
		t.Errorf("missing score should default to 0, got %f", rows[1].ProposalValue)
	}
}

func TestNewTargetHistory(t *testing.T) {
	target := &Target{TargetID: 3, FieldID: 1000, Filter: "r", NumExposures: 2, ExposureTimes: []float64{15, 15}, ProposalIDs: []int{1}}
	row := NewTargetHistory(target, 7)
	if row.RequestedExpTime != 30 {
		t.Errorf("expected requested exposure 30, got %f", row.RequestedExpTime)
	}
	if row.Night != 7 || row.NumProposals != 1 {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestDowntimeEntryNights(t *testing.T) {
	d := DowntimeEntry{Night: 100, Duration: 3, Activity: "maintenance"}
	nights := d.Nights()
	if len(nights) != 3 || nights[0] != 100 || nights[2] != 102 {
		t.Errorf("unexpected nights %v", nights)
	}
	if d.End() != 103 {
		t.Errorf("expected end 103, got %d", d.End())
	}
}

func TestSummaryStateName(t *testing.T) {
	tests := map[int]string{
		StateDisable: "DISABLE",
		StateEnable:  "ENABLE",
		StateFault:   "FAULT",
		StateOffline: "OFFLINE",
		StateStandby: "STANDBY",
		42:           "UNKNOWN",
	}
	for state, want := range tests {
		if got := SummaryStateName(state); got != want {
			t.Errorf("SummaryStateName(%d) = %s, want %s", state, got, want)
		}
	}
}

func TestEmptyObservation(t *testing.T) {
	obs := EmptyObservation()
	if obs.ObservationID != -1 || obs.TargetID != -1 {
		t.Errorf("unexpected empty observation %+v", obs)
	}
}
