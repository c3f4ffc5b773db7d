package claim_test

import (
	"testing"
	"time"

	"github.com/claimscore/claimscore/pkg/claim"
)

func TestAnonymizeID(t *testing.T) {
	a := claim.AnonymizeID("3201010101010001")
	if len(a) != 12 {
		t.Fatalf("pseudonym length = %d, want 12", len(a))
	}
	if a != claim.AnonymizeID(" 3201010101010001 ") {
		t.Error("surrounding whitespace should not change the pseudonym")
	}
	if a == claim.AnonymizeID("3201010101010002") {
		t.Error("different identities should map to different pseudonyms")
	}
	// sha256("abc") = ba7816bf8f01cfea...
	if got := claim.AnonymizeID("abc"); got != "ba7816bf8f01" {
		t.Errorf("AnonymizeID(abc) = %s, want ba7816bf8f01", got)
	}
}

func records(n int) []claim.Record {
	out := make([]claim.Record, n)
	for i := range out {
		out[i].Row = i
	}
	return out
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name           string
		n, holdout     int
		wantTrain      int
		wantEvaluation int
	}{
		{"no holdout", 10, 0, 10, 0},
		{"negative holdout", 10, -3, 10, 0},
		{"last rows", 10, 3, 7, 3},
		{"holdout equals table", 4, 4, 0, 4},
		{"holdout exceeds table", 4, 9, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, eval := claim.Split(records(tt.n), tt.holdout)
			if len(train) != tt.wantTrain || len(eval) != tt.wantEvaluation {
				t.Fatalf("Split(%d, %d) = %d/%d, want %d/%d",
					tt.n, tt.holdout, len(train), len(eval), tt.wantTrain, tt.wantEvaluation)
			}
			if len(eval) > 0 && eval[len(eval)-1].Row != tt.n-1 {
				t.Errorf("evaluation should end with the last row, got %d", eval[len(eval)-1].Row)
			}
		})
	}
}

func TestSortByClaimDate_Stable(t *testing.T) {
	d := func(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }
	recs := records(4)
	recs[0].ClaimDate = d(5)
	recs[1].ClaimDate = d(2)
	recs[2].ClaimDate = d(5)
	recs[3].ClaimDate = d(1)

	claim.SortByClaimDate(recs)

	want := []int{3, 1, 0, 2}
	for i, r := range recs {
		if r.Row != want[i] {
			t.Errorf("position %d: row %d, want %d", i, r.Row, want[i])
		}
	}
}

func TestDayNumberAndMonthIndex(t *testing.T) {
	a := time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if got := claim.DayNumber(b) - claim.DayNumber(a); got != 2 {
		t.Errorf("day difference across leap day = %d, want 2", got)
	}
	dec := time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := claim.MonthIndex(jan) - claim.MonthIndex(dec); got != 1 {
		t.Errorf("month difference across year = %d, want 1", got)
	}
}
