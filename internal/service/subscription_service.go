package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/config"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

// PlanStore is the subscription plan data access surface.
type PlanStore interface {
	Create(p *models.SubscriptionPlan) error
	GetByID(id int) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
	Update(p *models.SubscriptionPlan) error
}

// TransactionStore is the payment transaction data access surface.
type TransactionStore interface {
	Create(trx *models.PaymentTransaction) error
	GetByID(id int) (*models.PaymentTransaction, error)
	GetByChargeID(chargeID string) (*models.PaymentTransaction, error)
	SetChargeID(id int, chargeID string) error
	MarkCompleted(id int, paidAt time.Time) error
	MarkFailed(id int, reason string) error
	MarkRefunded(chargeID string, amount int, refundedAt time.Time) error
	ListBySupplier(supplierID int) ([]models.PaymentTransaction, error)
	ListStalePending(olderThan time.Duration, limit int) ([]models.PaymentTransaction, error)
}

// SubscriptionStore is the subscription data access surface. Activate runs
// the whole activation as one transaction at the store level.
type SubscriptionStore interface {
	Activate(chargeID string, now time.Time) (*models.UserSubscription, *models.PaymentTransaction, error)
	GetByID(id int) (*models.UserSubscription, error)
	GetCurrentActive(supplierID int) (*models.UserSubscription, error)
	ListBySupplier(supplierID int) ([]models.UserSubscription, error)
	ListAll(limit, offset int) ([]models.UserSubscription, int, error)
	Cancel(id int, now time.Time) error
	ExpireOverdue(now time.Time) (int, error)
}

// SupplierAccountStore resolves supplier accounts for charge customer info.
type SupplierAccountStore interface {
	GetByID(id int) (*models.Supplier, error)
}

// ChargeGateway is the slice of the payment gateway client this service uses.
type ChargeGateway interface {
	CreateCharge(ctx context.Context, req *tap.ChargeRequest) (*tap.Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*tap.Charge, error)
}

// SubscriptionService drives the subscription payment lifecycle: pending
// transaction, gateway charge, webhook-driven activation, cancellation and
// expiry.
type SubscriptionService struct {
	plans         PlanStore
	transactions  TransactionStore
	subscriptions SubscriptionStore
	suppliers     SupplierAccountStore
	gateway       ChargeGateway
	cfg           config.TapConfig
	now           func() time.Time
}

func NewSubscriptionService(
	plans PlanStore,
	transactions TransactionStore,
	subscriptions SubscriptionStore,
	suppliers SupplierAccountStore,
	gateway ChargeGateway,
	cfg config.TapConfig,
) *SubscriptionService {
	return &SubscriptionService{
		plans:         plans,
		transactions:  transactions,
		subscriptions: subscriptions,
		suppliers:     suppliers,
		gateway:       gateway,
		cfg:           cfg,
		now:           time.Now,
	}
}

// PaymentIntent is the result of starting a subscription payment.
type PaymentIntent struct {
	TransactionID int    `json:"transactionId"`
	ChargeID      string `json:"chargeId"`
	PaymentURL    string `json:"paymentUrl"`
	Amount        int    `json:"amount"`
	Currency      string `json:"currency"`
}

// CreateSubscriptionPayment creates a pending transaction for the plan and
// opens a gateway charge for it. The amount is validated before the gateway
// is contacted; a zero or negative plan price never produces a charge. A nil
// customer falls back to the supplier's account details.
func (s *SubscriptionService) CreateSubscriptionPayment(ctx context.Context, supplierID, planID int, customer *tap.Customer) (*PaymentIntent, error) {
	plan, err := s.plans.GetByID(planID)
	if err != nil {
		if mapNoRows(err) == utils.ErrNotFound {
			return nil, utils.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, utils.ErrPlanInactive
	}

	amount := plan.PriceMinorUnits()
	if amount <= 0 {
		return nil, utils.ErrInvalidAmount
	}

	if customer == nil || customer.Email == "" {
		supplier, err := s.suppliers.GetByID(supplierID)
		if err != nil {
			return nil, mapNoRows(err)
		}
		customer = &tap.Customer{Name: supplier.Name, Email: supplier.Email, Phone: supplier.Phone}
	}

	trx := &models.PaymentTransaction{
		SupplierID: supplierID,
		PlanID:     plan.ID,
		Amount:     amount,
		Currency:   plan.Currency,
		Type:       models.TrxTypeSubscription,
		Status:     models.TrxPending,
	}
	if err := s.transactions.Create(trx); err != nil {
		return nil, err
	}

	charge, err := s.gateway.CreateCharge(ctx, &tap.ChargeRequest{
		Amount:      amount,
		Currency:    plan.Currency,
		Customer:    *customer,
		Description: fmt.Sprintf("%s subscription (%d months)", plan.Name, plan.DurationMonths),
		RedirectURL: s.cfg.RedirectURL,
		WebhookURL:  s.cfg.WebhookURL,
		Metadata: map[string]string{
			"transaction_id": strconv.Itoa(trx.ID),
			"supplier_id":    strconv.Itoa(supplierID),
			"plan_id":        strconv.Itoa(plan.ID),
		},
	})
	if err != nil || charge.ID == "" {
		reason := "gateway charge creation failed"
		if err != nil {
			reason = err.Error()
		}
		if markErr := s.transactions.MarkFailed(trx.ID, reason); markErr != nil {
			log.Error().Err(markErr).Int("transaction_id", trx.ID).Msg("failed to mark transaction failed")
		}
		log.Error().Err(err).Int("transaction_id", trx.ID).Msg("gateway charge creation failed")
		return nil, utils.ErrGateway
	}

	if err := s.transactions.SetChargeID(trx.ID, charge.ID); err != nil {
		return nil, err
	}

	// A charge without a hosted payment URL cannot be paid by the customer,
	// but the gateway accepted it, so the transaction stays pending for the
	// reconciler rather than being failed.
	url := charge.PaymentURL()
	if url == "" {
		log.Error().Str("charge_id", charge.ID).Int("transaction_id", trx.ID).Msg("charge created without payment url")
		return nil, utils.ErrPaymentURLMissing
	}

	return &PaymentIntent{
		TransactionID: trx.ID,
		ChargeID:      charge.ID,
		PaymentURL:    url,
		Amount:        amount,
		Currency:      plan.Currency,
	}, nil
}

// ActivateSubscription completes the pending transaction for the charge and
// swaps the supplier onto the paid plan. Duplicate deliveries are harmless:
// with no pending transaction left to complete, the store reports not found.
func (s *SubscriptionService) ActivateSubscription(ctx context.Context, chargeID string) (*models.UserSubscription, error) {
	sub, trx, err := s.subscriptions.Activate(chargeID, s.now())
	if err != nil {
		return nil, mapNoRows(err)
	}
	log.Info().
		Str("charge_id", chargeID).
		Int("subscription_id", sub.ID).
		Int("supplier_id", trx.SupplierID).
		Int("plan_id", trx.PlanID).
		Msg("subscription activated")
	return sub, nil
}

// ProcessWebhook applies a gateway event to the matching transaction. Errors
// are returned for logging; the HTTP layer acknowledges the webhook
// regardless so the gateway does not retry storms on our bugs.
func (s *SubscriptionService) ProcessWebhook(ctx context.Context, payload *tap.WebhookPayload) error {
	switch payload.Event {
	case tap.EventChargeCaptured:
		if payload.Charge == nil || payload.Charge.ID == "" {
			return fmt.Errorf("%s event without charge", payload.Event)
		}
		trx, err := s.transactions.GetByChargeID(payload.Charge.ID)
		if err != nil {
			if mapNoRows(err) == utils.ErrNotFound {
				log.Info().Str("charge_id", payload.Charge.ID).Msg("no transaction for captured charge, ignoring")
				return nil
			}
			return err
		}
		if trx.Type == models.TrxTypeSubscription || trx.Type == models.TrxTypeRenewal {
			_, err := s.ActivateSubscription(ctx, payload.Charge.ID)
			if err == utils.ErrNotFound {
				log.Info().Str("charge_id", payload.Charge.ID).Msg("no pending transaction for captured charge, ignoring")
				return nil
			}
			return err
		}
		// Non-subscription captures settle the transaction without touching
		// any subscription rows.
		if trx.Status != models.TrxPending {
			return nil
		}
		return s.transactions.MarkCompleted(trx.ID, s.now())

	case tap.EventChargeFailed:
		if payload.Charge == nil || payload.Charge.ID == "" {
			return fmt.Errorf("%s event without charge", payload.Event)
		}
		trx, err := s.transactions.GetByChargeID(payload.Charge.ID)
		if err != nil {
			return mapNoRows(err)
		}
		if trx.Status != models.TrxPending {
			return nil
		}
		reason := "charge failed"
		if payload.Charge.Response != nil && payload.Charge.Response.Message != "" {
			reason = payload.Charge.Response.Message
		}
		return s.transactions.MarkFailed(trx.ID, reason)

	case tap.EventRefundCaptured:
		if payload.Refund == nil || payload.Refund.ChargeID == "" {
			return fmt.Errorf("%s event without refund", payload.Event)
		}
		return s.transactions.MarkRefunded(payload.Refund.ChargeID, payload.Refund.Amount, s.now())

	case tap.EventChargeInitialized, tap.EventChargeAuthorized, tap.EventRefundInitialized:
		// Intermediate states carry no transition for us.
		return nil

	default:
		log.Warn().Str("event", payload.Event).Msg("unhandled gateway event")
		return nil
	}
}

// ConfirmPayment re-checks a charge against the gateway and settles the
// transaction accordingly. Used by the redirect callback and the
// reconciliation worker when a webhook may have been missed.
func (s *SubscriptionService) ConfirmPayment(ctx context.Context, chargeID string) (*models.PaymentTransaction, error) {
	trx, err := s.transactions.GetByChargeID(chargeID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if trx.Status != models.TrxPending {
		return trx, nil
	}

	charge, err := s.gateway.RetrieveCharge(ctx, chargeID)
	if err != nil {
		return nil, utils.ErrGateway
	}

	switch charge.Status {
	case tap.StatusCaptured:
		if trx.Type == models.TrxTypeSubscription || trx.Type == models.TrxTypeRenewal {
			if _, err := s.ActivateSubscription(ctx, chargeID); err != nil && err != utils.ErrNotFound {
				return nil, err
			}
		} else if err := s.transactions.MarkCompleted(trx.ID, s.now()); err != nil {
			return nil, err
		}
	case tap.StatusFailed, tap.StatusAbandoned:
		reason := "charge " + charge.Status
		if charge.Response != nil && charge.Response.Message != "" {
			reason = charge.Response.Message
		}
		if err := s.transactions.MarkFailed(trx.ID, reason); err != nil {
			return nil, err
		}
	default:
		// Still in flight, leave pending.
		return trx, nil
	}

	return s.transactions.GetByID(trx.ID)
}

// PaymentStatus returns the supplier's transaction, reconciling against the
// gateway first when it is still pending with a charge attached.
func (s *SubscriptionService) PaymentStatus(ctx context.Context, supplierID, transactionID int) (*models.PaymentTransaction, error) {
	trx, err := s.transactions.GetByID(transactionID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if trx.SupplierID != supplierID {
		return nil, utils.ErrForbidden
	}
	if trx.Status == models.TrxPending && trx.TapChargeID != nil && *trx.TapChargeID != "" {
		if after, err := s.ConfirmPayment(ctx, *trx.TapChargeID); err == nil {
			return after, nil
		}
		// Gateway unavailable: report the local state rather than erroring.
		log.Warn().Int("transaction_id", transactionID).Msg("status poll could not reach gateway, returning local state")
	}
	return trx, nil
}

// CurrentSubscription returns the supplier's active subscription, or nil
// when there is none.
func (s *SubscriptionService) CurrentSubscription(ctx context.Context, supplierID int) (*models.UserSubscription, error) {
	return s.subscriptions.GetCurrentActive(supplierID)
}

// SubscriptionHistory lists all the supplier's subscriptions, newest first.
func (s *SubscriptionService) SubscriptionHistory(ctx context.Context, supplierID int) ([]models.UserSubscription, error) {
	return s.subscriptions.ListBySupplier(supplierID)
}

// PaymentHistory lists all the supplier's payment transactions, newest first.
func (s *SubscriptionService) PaymentHistory(ctx context.Context, supplierID int) ([]models.PaymentTransaction, error) {
	return s.transactions.ListBySupplier(supplierID)
}

// ListPlans returns the purchasable plans ordered by price.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.plans.ListActive()
}

// ListAllSubscriptions returns a page of subscriptions with total (admin).
func (s *SubscriptionService) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]models.UserSubscription, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.subscriptions.ListAll(limit, offset)
}

// CreatePlan adds a purchasable plan (admin).
func (s *SubscriptionService) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.Name == "" || plan.DurationMonths <= 0 || plan.Price < 0 {
		return utils.ErrValidation
	}
	if plan.Currency == "" {
		plan.Currency = "SAR"
	}
	return s.plans.Create(plan)
}

// UpdatePlan modifies an existing plan (admin).
func (s *SubscriptionService) UpdatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	if _, err := s.plans.GetByID(plan.ID); err != nil {
		return mapNoRows(err)
	}
	if plan.Name == "" || plan.DurationMonths <= 0 || plan.Price < 0 {
		return utils.ErrValidation
	}
	return s.plans.Update(plan)
}

// CancelSubscription cancels an active subscription. Admins may cancel any
// subscription; suppliers only their own (supplierID 0 skips the ownership
// check for admin calls).
func (s *SubscriptionService) CancelSubscription(ctx context.Context, supplierID, subscriptionID int) error {
	sub, err := s.subscriptions.GetByID(subscriptionID)
	if err != nil {
		return mapNoRows(err)
	}
	if supplierID != 0 && sub.SupplierID != supplierID {
		return utils.ErrForbidden
	}
	if sub.Status != models.SubscriptionActive {
		return utils.ErrNotFound
	}
	if err := s.subscriptions.Cancel(subscriptionID, s.now()); err != nil {
		return mapNoRows(err)
	}
	log.Info().Int("subscription_id", subscriptionID).Msg("subscription cancelled")
	return nil
}

// UpdateExpiredSubscriptions flips overdue active subscriptions to expired
// and returns how many were affected.
func (s *SubscriptionService) UpdateExpiredSubscriptions(ctx context.Context) (int, error) {
	return s.subscriptions.ExpireOverdue(s.now())
}

// ReconcileStalePending resolves pending transactions old enough that a
// webhook should have arrived, by querying the gateway for each.
func (s *SubscriptionService) ReconcileStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.transactions.ListStalePending(olderThan, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stale {
		trx := &stale[i]
		if trx.TapChargeID == nil || *trx.TapChargeID == "" {
			// Never reached the gateway; nothing to reconcile against.
			if err := s.transactions.MarkFailed(trx.ID, "abandoned before charge creation"); err != nil {
				log.Error().Err(err).Int("transaction_id", trx.ID).Msg("failed to fail chargeless transaction")
				continue
			}
			resolved++
			continue
		}
		after, err := s.ConfirmPayment(ctx, *trx.TapChargeID)
		if err != nil {
			log.Warn().Err(err).Str("charge_id", *trx.TapChargeID).Msg("reconcile: gateway check failed")
			continue
		}
		if after.Status != models.TrxPending {
			resolved++
		}
	}
	return resolved, nil
}
