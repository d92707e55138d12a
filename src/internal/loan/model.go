package loan

import "time"

// Loan is the slice of the loan record this subsystem reads and writes.
// Everything else about a loan belongs to the loan service.
type Loan struct {
	LoanID         string     `json:"loanId" bson:"loan_id"`
	UserID         string     `json:"userId" bson:"user_id"`
	Status         string     `json:"status" bson:"status"`
	ExternalLoanID *string    `json:"externalLoanId,omitempty" bson:"external_loan_id,omitempty"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty" bson:"last_synced_at,omitempty"`
}
