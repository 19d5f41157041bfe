package models

import "time"

type TransactionType string
type TransactionStatus string

const (
	TrxTypeSubscription TransactionType = "subscription"
	TrxTypeRenewal      TransactionType = "renewal"
	TrxTypeRefund       TransactionType = "refund"
)

const (
	TrxPending   TransactionStatus = "pending"
	TrxCompleted TransactionStatus = "completed"
	TrxFailed    TransactionStatus = "failed"
	TrxRefunded  TransactionStatus = "refunded"
)

// PaymentTransaction records a charge against the payment gateway. It is
// created pending and moved exactly once to a terminal state by webhook or
// reconciliation. Amount is in minor currency units.
type PaymentTransaction struct {
	ID             int               `db:"id" json:"id"`
	SupplierID     int               `db:"supplier_id" json:"supplierId"`
	PlanID         int               `db:"subscription_plan_id" json:"planId"`
	Type           TransactionType   `db:"type" json:"type"`
	Status         TransactionStatus `db:"status" json:"status"`
	TapChargeID    *string           `db:"tap_charge_id" json:"tapChargeId,omitempty"`
	Amount         int               `db:"amount" json:"amount"`
	Currency       string            `db:"currency" json:"currency"`
	PaidAt         *time.Time        `db:"paid_at" json:"paidAt,omitempty"`
	RefundedAmount *int              `db:"refunded_amount" json:"refundedAmount,omitempty"`
	RefundedAt     *time.Time        `db:"refunded_at" json:"refundedAt,omitempty"`
	FailureReason  *string           `db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"-"`
}
