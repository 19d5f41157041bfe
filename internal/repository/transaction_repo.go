package repository

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// TransactionRepository handles data access for payment transactions.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction row.
func (r *TransactionRepository) Create(trx *models.PaymentTransaction) error {
	const q = `
        INSERT INTO payment_transactions
            (supplier_id, subscription_plan_id, type, status, tap_charge_id, amount, currency,
             paid_at, refunded_amount, refunded_at, failure_reason, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q,
		trx.SupplierID, trx.PlanID, trx.Type, trx.Status, trx.TapChargeID, trx.Amount, trx.Currency,
		trx.PaidAt, trx.RefundedAmount, trx.RefundedAt, trx.FailureReason,
	).Scan(&trx.ID, &trx.CreatedAt)
}

// GetByID returns a transaction by id.
func (r *TransactionRepository) GetByID(id int) (*models.PaymentTransaction, error) {
	const q = `SELECT * FROM payment_transactions WHERE id = $1 LIMIT 1`
	var t models.PaymentTransaction
	if err := r.db.Get(&t, q, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByChargeID returns a transaction by its gateway charge id, any status.
func (r *TransactionRepository) GetByChargeID(chargeID string) (*models.PaymentTransaction, error) {
	const q = `SELECT * FROM payment_transactions WHERE tap_charge_id = $1 LIMIT 1`
	var t models.PaymentTransaction
	if err := r.db.Get(&t, q, chargeID); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetChargeID stores the external charge id on a transaction.
func (r *TransactionRepository) SetChargeID(id int, chargeID string) error {
	const q = `UPDATE payment_transactions SET tap_charge_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id, chargeID)
	return err
}

// MarkCompleted moves a transaction to completed with paid_at set.
func (r *TransactionRepository) MarkCompleted(id int, paidAt time.Time) error {
	const q = `
        UPDATE payment_transactions
        SET status = 'completed', paid_at = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`
	_, err := r.db.Exec(q, id, paidAt)
	return err
}

// MarkFailed moves a transaction to failed with the gateway reason.
func (r *TransactionRepository) MarkFailed(id int, reason string) error {
	const q = `
        UPDATE payment_transactions
        SET status = 'failed', failure_reason = $2, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`
	_, err := r.db.Exec(q, id, reason)
	return err
}

// MarkRefunded records a refund against a transaction by charge id.
func (r *TransactionRepository) MarkRefunded(chargeID string, amount int, refundedAt time.Time) error {
	const q = `
        UPDATE payment_transactions
        SET status = 'refunded', refunded_amount = $2, refunded_at = $3, updated_at = NOW()
        WHERE tap_charge_id = $1`
	_, err := r.db.Exec(q, chargeID, amount, refundedAt)
	return err
}

// ListBySupplier returns a supplier's transactions, newest first.
func (r *TransactionRepository) ListBySupplier(supplierID int) ([]models.PaymentTransaction, error) {
	const q = `SELECT * FROM payment_transactions WHERE supplier_id = $1 ORDER BY created_at DESC`
	var list []models.PaymentTransaction
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}

// ListStalePending returns pending transactions older than the given
// duration, for gateway reconciliation. Rows without a charge id are included
// so abandoned attempts get failed. Concurrent sweeps may pick up the same
// rows; the transitions they apply are idempotent.
func (r *TransactionRepository) ListStalePending(olderThan time.Duration, limit int) ([]models.PaymentTransaction, error) {
	const q = `
        SELECT * FROM payment_transactions
        WHERE status = 'pending'
          AND created_at < NOW() - $1::interval
        ORDER BY created_at ASC
        LIMIT $2`

	intervalStr := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	var list []models.PaymentTransaction
	if err := r.db.Select(&list, q, intervalStr, limit); err != nil {
		return nil, err
	}
	return list, nil
}
