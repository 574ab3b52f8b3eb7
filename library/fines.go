/*
fines.go - Overdue fine calculation

PURPOSE:
  Computes the fine owed on an issued record: a flat daily rate for every
  day past the loan period. Fines are derived data computed at read time;
  nothing about them is persisted.

ARITHMETIC:
  Money uses shopspring/decimal. Multiplying a float rate by a day count
  is exactly the kind of place binary floats drift, so the rate is held
  as a decimal from configuration parsing onward.
*/
package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLoanDays is how long a copy may be out before fines accrue.
const DefaultLoanDays = 14

// FinePolicy computes overdue fines.
type FinePolicy struct {
	// LoanDays is the fine-free loan period.
	LoanDays int

	// DailyRate is charged per day past the loan period.
	DailyRate decimal.Decimal
}

// DefaultFinePolicy charges 0.50 per overdue day after 14 days.
func DefaultFinePolicy() FinePolicy {
	return FinePolicy{
		LoanDays:  DefaultLoanDays,
		DailyRate: decimal.New(50, -2),
	}
}

// Assess returns the fine owed on rec as of asOf. Open records accrue
// against asOf; closed records are assessed against their return date.
// Records out no longer than LoanDays owe zero.
func (p FinePolicy) Assess(rec IssuedRecord, asOf time.Time) decimal.Decimal {
	issued, err := time.Parse(DateOnly, rec.IssueDate)
	if err != nil {
		return decimal.Zero
	}

	end := asOf
	if !rec.Open() {
		if returned, err := time.Parse(DateOnly, rec.ReturnDate); err == nil {
			end = returned
		}
	}

	daysOut := int(end.Sub(issued).Hours() / 24)
	overdue := daysOut - p.LoanDays
	if overdue <= 0 {
		return decimal.Zero
	}
	return p.DailyRate.Mul(decimal.NewFromInt(int64(overdue)))
}
