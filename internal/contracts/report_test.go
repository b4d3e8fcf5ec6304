package contracts

import (
	"strings"
	"testing"
)

func TestBatchReport(t *testing.T) {
	r := NewBatchReport("chart")
	r.Add(ItemResult{ExecuteID: "a", Outcome: OutcomeSucceeded})
	r.Add(ItemResult{ExecuteID: "b", Outcome: OutcomeFailed, Kind: FailureFit})
	r.Add(ItemResult{ExecuteID: "c", Outcome: OutcomeSkipped})
	r.Add(ItemResult{ExecuteID: "d", Outcome: OutcomeSucceeded})

	if got := r.Count(OutcomeSucceeded); got != 2 {
		t.Errorf("Count(succeeded) = %d", got)
	}

	failed := r.Failed()
	if len(failed) != 1 || failed[0].ExecuteID != "b" {
		t.Errorf("Failed() = %+v", failed)
	}

	want := "chart: 4 items (2 succeeded, 1 failed, 1 skipped)"
	if got := r.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	r.Finish()
	if !strings.HasPrefix(r.Summary(), want+" in ") {
		t.Errorf("Summary() after Finish = %q", r.Summary())
	}
}
