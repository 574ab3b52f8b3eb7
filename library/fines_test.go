package library_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/library-engine/library"
)

func TestFines(t *testing.T) {
	policy := library.DefaultFinePolicy()
	asOf := time.Date(2026, time.March, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  library.IssuedRecord
		want string
	}{
		{
			name: "within loan period",
			rec:  library.IssuedRecord{IssueDate: "2026-03-20"},
			want: "0.00",
		},
		{
			name: "due exactly today",
			rec:  library.IssuedRecord{IssueDate: "2026-03-17"},
			want: "0.00",
		},
		{
			name: "open and overdue",
			rec:  library.IssuedRecord{IssueDate: "2026-03-01"},
			want: "8.00", // 30 days out, 16 overdue
		},
		{
			name: "closed record assessed at return date",
			rec:  library.IssuedRecord{IssueDate: "2026-01-01", ReturnDate: "2026-01-20"},
			want: "2.50", // 19 days out, 5 overdue
		},
		{
			name: "closed on time",
			rec:  library.IssuedRecord{IssueDate: "2026-01-01", ReturnDate: "2026-01-10"},
			want: "0.00",
		},
		{
			name: "unparseable issue date owes nothing",
			rec:  library.IssuedRecord{IssueDate: "not-a-date"},
			want: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fine := policy.Assess(tt.rec, asOf)
			assert.Equal(t, tt.want, fine.StringFixed(2))
		})
	}
}

func TestFines_CustomPolicy(t *testing.T) {
	policy := library.FinePolicy{LoanDays: 7, DailyRate: decimal.New(125, -2)}
	asOf := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	fine := policy.Assess(library.IssuedRecord{IssueDate: "2026-03-01"}, asOf)

	assert.Equal(t, "3.75", fine.StringFixed(2)) // 10 days out, 3 overdue at 1.25
}
