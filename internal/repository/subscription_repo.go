package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// SubscriptionRepository handles data access for user subscriptions,
// including the atomic activation sequence.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Activate performs the whole activation sequence for the pending transaction
// matching the given charge id inside one database transaction:
//
//  1. lock the pending payment transaction row (FOR UPDATE) — no pending match
//     returns sql.ErrNoRows, which makes duplicate webhook delivery fail
//     cleanly instead of double-activating;
//  2. expire every currently-active subscription for that supplier;
//  3. insert the new active subscription running duration_months from now;
//  4. mark the payment transaction completed;
//  5. move the supplier account to the purchased plan tier.
//
// The row lock serializes concurrent activations touching the same charge;
// the expire-then-insert order inside the transaction preserves the
// at-most-one-active invariant for concurrent activations of different
// charges for the same supplier.
func (r *SubscriptionRepository) Activate(chargeID string, now time.Time) (*models.UserSubscription, *models.PaymentTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var trx models.PaymentTransaction
	const lockQ = `
        SELECT * FROM payment_transactions
        WHERE tap_charge_id = $1 AND status = 'pending'
        LIMIT 1
        FOR UPDATE`
	if err := tx.Get(&trx, lockQ, chargeID); err != nil {
		return nil, nil, err
	}

	var plan models.SubscriptionPlan
	if err := tx.Get(&plan, `SELECT * FROM subscription_plans WHERE id = $1`, trx.PlanID); err != nil {
		return nil, nil, err
	}

	const expireQ = `
        UPDATE user_subscriptions
        SET status = 'expired', updated_at = NOW()
        WHERE supplier_id = $1 AND status = 'active'`
	if _, err := tx.Exec(expireQ, trx.SupplierID); err != nil {
		return nil, nil, err
	}

	sub := &models.UserSubscription{
		SupplierID:  trx.SupplierID,
		PlanID:      trx.PlanID,
		Status:      models.SubscriptionActive,
		StartsAt:    now,
		EndsAt:      now.AddDate(0, plan.DurationMonths, 0),
		TapChargeID: &chargeID,
	}
	const insertQ = `
        INSERT INTO user_subscriptions
            (supplier_id, subscription_plan_id, status, starts_at, ends_at, tap_charge_id, auto_renew, created_at, updated_at)
        VALUES ($1,$2,'active',$3,$4,$5,$6,NOW(),NOW())
        RETURNING id, created_at`
	if err := tx.QueryRow(insertQ,
		sub.SupplierID, sub.PlanID, sub.StartsAt, sub.EndsAt, sub.TapChargeID, sub.AutoRenew,
	).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return nil, nil, err
	}

	const completeQ = `
        UPDATE payment_transactions
        SET status = 'completed', paid_at = $2, updated_at = NOW()
        WHERE id = $1`
	if _, err := tx.Exec(completeQ, trx.ID, now); err != nil {
		return nil, nil, err
	}

	const planQ = `UPDATE suppliers SET plan = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(planQ, trx.SupplierID, models.PlanFromName(plan.Name)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	trx.Status = models.TrxCompleted
	trx.PaidAt = &now
	return sub, &trx, nil
}

// GetByID returns a subscription by id.
func (r *SubscriptionRepository) GetByID(id int) (*models.UserSubscription, error) {
	const q = `SELECT * FROM user_subscriptions WHERE id = $1 LIMIT 1`
	var s models.UserSubscription
	if err := r.db.Get(&s, q, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCurrentActive returns the supplier's active subscription, or nil when
// none exists.
func (r *SubscriptionRepository) GetCurrentActive(supplierID int) (*models.UserSubscription, error) {
	const q = `
        SELECT * FROM user_subscriptions
        WHERE supplier_id = $1 AND status = 'active'
        ORDER BY created_at DESC
        LIMIT 1`
	var s models.UserSubscription
	if err := r.db.Get(&s, q, supplierID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListBySupplier returns the supplier's subscription history, newest first.
func (r *SubscriptionRepository) ListBySupplier(supplierID int) ([]models.UserSubscription, error) {
	const q = `SELECT * FROM user_subscriptions WHERE supplier_id = $1 ORDER BY created_at DESC`
	var list []models.UserSubscription
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}

// ListAll returns a page of subscriptions across all suppliers with the
// total count, newest first. Admin use.
func (r *SubscriptionRepository) ListAll(limit, offset int) ([]models.UserSubscription, int, error) {
	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM user_subscriptions`); err != nil {
		return nil, 0, err
	}
	const q = `SELECT * FROM user_subscriptions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var list []models.UserSubscription
	if err := r.db.Select(&list, q, limit, offset); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Cancel marks a subscription cancelled and turns auto-renew off.
func (r *SubscriptionRepository) Cancel(id int, now time.Time) error {
	const q = `
        UPDATE user_subscriptions
        SET status = 'cancelled', cancelled_at = $2, auto_renew = FALSE, updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.Exec(q, id, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExpireOverdue marks every active subscription whose end date has passed as
// expired, stamping cancelled_at with the sweep time, and returns how many
// rows changed.
func (r *SubscriptionRepository) ExpireOverdue(now time.Time) (int, error) {
	const q = `
        UPDATE user_subscriptions
        SET status = 'expired', cancelled_at = $1, updated_at = NOW()
        WHERE status = 'active' AND ends_at < $1`
	res, err := r.db.Exec(q, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
