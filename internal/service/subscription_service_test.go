package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TijaraHub/tijara_api/internal/config"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

type fakePlanStore struct {
	plans map[int]*models.SubscriptionPlan
}

func (f *fakePlanStore) Create(p *models.SubscriptionPlan) error {
	p.ID = len(f.plans) + 1
	f.plans[p.ID] = p
	return nil
}

func (f *fakePlanStore) GetByID(id int) (*models.SubscriptionPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlanStore) ListActive() ([]models.SubscriptionPlan, error) {
	var out []models.SubscriptionPlan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlanStore) Update(p *models.SubscriptionPlan) error {
	f.plans[p.ID] = p
	return nil
}

type fakeTransactionStore struct {
	items  map[int]*models.PaymentTransaction
	nextID int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{items: map[int]*models.PaymentTransaction{}}
}

func (f *fakeTransactionStore) Create(trx *models.PaymentTransaction) error {
	f.nextID++
	trx.ID = f.nextID
	trx.CreatedAt = time.Now()
	cp := *trx
	f.items[trx.ID] = &cp
	return nil
}

func (f *fakeTransactionStore) GetByID(id int) (*models.PaymentTransaction, error) {
	trx, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *trx
	return &cp, nil
}

func (f *fakeTransactionStore) GetByChargeID(chargeID string) (*models.PaymentTransaction, error) {
	for _, trx := range f.items {
		if trx.TapChargeID != nil && *trx.TapChargeID == chargeID {
			cp := *trx
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTransactionStore) SetChargeID(id int, chargeID string) error {
	f.items[id].TapChargeID = &chargeID
	return nil
}

func (f *fakeTransactionStore) MarkCompleted(id int, paidAt time.Time) error {
	f.items[id].Status = models.TrxCompleted
	f.items[id].PaidAt = &paidAt
	return nil
}

func (f *fakeTransactionStore) MarkFailed(id int, reason string) error {
	f.items[id].Status = models.TrxFailed
	f.items[id].FailureReason = &reason
	return nil
}

func (f *fakeTransactionStore) MarkRefunded(chargeID string, amount int, refundedAt time.Time) error {
	for _, trx := range f.items {
		if trx.TapChargeID != nil && *trx.TapChargeID == chargeID {
			trx.Status = models.TrxRefunded
			trx.RefundedAmount = &amount
			trx.RefundedAt = &refundedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeTransactionStore) ListBySupplier(supplierID int) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	for _, trx := range f.items {
		if trx.SupplierID == supplierID {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) ListStalePending(olderThan time.Duration, limit int) ([]models.PaymentTransaction, error) {
	cutoff := time.Now().Add(-olderThan)
	var out []models.PaymentTransaction
	for _, trx := range f.items {
		if trx.Status == models.TrxPending && trx.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *trx)
		}
	}
	return out, nil
}

// fakeSubscriptionStore mimics the store-level atomic activation: a pending
// transaction for the charge is required, prior actives are expired, the
// transaction completes.
type fakeSubscriptionStore struct {
	trxs   *fakeTransactionStore
	plans  *fakePlanStore
	subs   map[int]*models.UserSubscription
	nextID int
}

func newFakeSubscriptionStore(trxs *fakeTransactionStore, plans *fakePlanStore) *fakeSubscriptionStore {
	return &fakeSubscriptionStore{trxs: trxs, plans: plans, subs: map[int]*models.UserSubscription{}}
}

func (f *fakeSubscriptionStore) Activate(chargeID string, now time.Time) (*models.UserSubscription, *models.PaymentTransaction, error) {
	var trx *models.PaymentTransaction
	for _, t := range f.trxs.items {
		if t.TapChargeID != nil && *t.TapChargeID == chargeID && t.Status == models.TrxPending {
			trx = t
			break
		}
	}
	if trx == nil {
		return nil, nil, sql.ErrNoRows
	}
	plan := f.plans.plans[trx.PlanID]

	for _, s := range f.subs {
		if s.SupplierID == trx.SupplierID && s.Status == models.SubscriptionActive {
			s.Status = models.SubscriptionExpired
		}
	}

	f.nextID++
	sub := &models.UserSubscription{
		ID:          f.nextID,
		SupplierID:  trx.SupplierID,
		PlanID:      trx.PlanID,
		Status:      models.SubscriptionActive,
		StartsAt:    now,
		EndsAt:      now.AddDate(0, plan.DurationMonths, 0),
		TapChargeID: &chargeID,
	}
	f.subs[sub.ID] = sub

	trx.Status = models.TrxCompleted
	trx.PaidAt = &now

	cpSub := *sub
	cpTrx := *trx
	return &cpSub, &cpTrx, nil
}

func (f *fakeSubscriptionStore) GetByID(id int) (*models.UserSubscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriptionStore) GetCurrentActive(supplierID int) (*models.UserSubscription, error) {
	for _, s := range f.subs {
		if s.SupplierID == supplierID && s.Status == models.SubscriptionActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) ListBySupplier(supplierID int) ([]models.UserSubscription, error) {
	var out []models.UserSubscription
	for _, s := range f.subs {
		if s.SupplierID == supplierID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubscriptionStore) ListAll(limit, offset int) ([]models.UserSubscription, int, error) {
	var out []models.UserSubscription
	for _, s := range f.subs {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeSubscriptionStore) Cancel(id int, now time.Time) error {
	s, ok := f.subs[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = models.SubscriptionCancelled
	s.CancelledAt = &now
	s.AutoRenew = false
	return nil
}

func (f *fakeSubscriptionStore) ExpireOverdue(now time.Time) (int, error) {
	n := 0
	for _, s := range f.subs {
		if s.Status == models.SubscriptionActive && s.EndsAt.Before(now) {
			s.Status = models.SubscriptionExpired
			ts := now
			s.CancelledAt = &ts
			n++
		}
	}
	return n, nil
}

type fakeGateway struct {
	charges       map[string]*tap.Charge
	createErr     error
	created       []*tap.ChargeRequest
	nextCharge    *tap.Charge
	seq           int
	retrieveCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{charges: map[string]*tap.Charge{}}
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req *tap.ChargeRequest) (*tap.Charge, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	charge := f.nextCharge
	if charge == nil {
		f.seq++
		id := fmt.Sprintf("chg_test_%d", f.seq)
		charge = &tap.Charge{
			ID:       id,
			Status:   tap.StatusInitiated,
			Amount:   req.Amount,
			Currency: req.Currency,
			PayURL:   "https://checkout.tap.company/" + id,
		}
	}
	f.charges[charge.ID] = charge
	return charge, nil
}

func (f *fakeGateway) RetrieveCharge(ctx context.Context, chargeID string) (*tap.Charge, error) {
	f.retrieveCalls++
	charge, ok := f.charges[chargeID]
	if !ok {
		return nil, errors.New("charge not found")
	}
	return charge, nil
}

func newTestSubscriptionService() (*SubscriptionService, *fakePlanStore, *fakeTransactionStore, *fakeSubscriptionStore, *fakeGateway) {
	plans := &fakePlanStore{plans: map[int]*models.SubscriptionPlan{
		1: {ID: 1, Name: "Premium", Price: 299.00, Currency: "SAR", BillingCycle: "monthly", DurationMonths: 1, IsActive: true},
		2: {ID: 2, Name: "Free Trial", Price: 0, Currency: "SAR", DurationMonths: 1, IsActive: true},
		3: {ID: 3, Name: "Legacy", Price: 99.00, Currency: "SAR", DurationMonths: 1, IsActive: false},
	}}
	trxs := newFakeTransactionStore()
	subs := newFakeSubscriptionStore(trxs, plans)
	suppliers := newFakeSupplierStore()
	suppliers.suppliers[1] = &models.Supplier{ID: 1, Name: "Al Noor Trading", Email: "noor@example.sa"}
	gateway := newFakeGateway()

	svc := NewSubscriptionService(plans, trxs, subs, suppliers, gateway, config.TapConfig{
		RedirectURL: "https://api.tijarahub.sa/v1/subscription/success",
		WebhookURL:  "https://api.tijarahub.sa/webhook/tap",
	})
	return svc, plans, trxs, subs, gateway
}

func TestCreateSubscriptionPaymentMinorUnits(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)

	// 299.00 SAR becomes 29900 halalas
	assert.Equal(t, 29900, intent.Amount)
	assert.Equal(t, "SAR", intent.Currency)
	assert.Equal(t, "chg_test_1", intent.ChargeID)
	assert.Equal(t, "https://checkout.tap.company/chg_test_1", intent.PaymentURL)

	require.Len(t, gateway.created, 1)
	assert.Equal(t, 29900, gateway.created[0].Amount)
	assert.Equal(t, "noor@example.sa", gateway.created[0].Customer.Email)

	trx, err := trxs.GetByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TrxPending, trx.Status)
	require.NotNil(t, trx.TapChargeID)
	assert.Equal(t, "chg_test_1", *trx.TapChargeID)
}

func TestCreateSubscriptionPaymentZeroPriceRejected(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()

	_, err := svc.CreateSubscriptionPayment(context.Background(), 1, 2, nil)
	assert.ErrorIs(t, err, utils.ErrInvalidAmount)

	// validated before any transaction or gateway call
	assert.Empty(t, gateway.created)
	assert.Empty(t, trxs.items)
}

func TestCreateSubscriptionPaymentInactivePlan(t *testing.T) {
	svc, _, _, _, _ := newTestSubscriptionService()
	_, err := svc.CreateSubscriptionPayment(context.Background(), 1, 3, nil)
	assert.ErrorIs(t, err, utils.ErrPlanInactive)
}

func TestCreateSubscriptionPaymentUnknownPlan(t *testing.T) {
	svc, _, _, _, _ := newTestSubscriptionService()
	_, err := svc.CreateSubscriptionPayment(context.Background(), 1, 99, nil)
	assert.ErrorIs(t, err, utils.ErrPlanNotFound)
}

func TestCreateSubscriptionPaymentGatewayError(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()
	gateway.createErr = &tap.APIError{Code: "1100", Description: "Invalid API key"}

	_, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	assert.ErrorIs(t, err, utils.ErrGateway)

	require.Len(t, trxs.items, 1)
	for _, trx := range trxs.items {
		assert.Equal(t, models.TrxFailed, trx.Status)
		require.NotNil(t, trx.FailureReason)
	}
}

func TestCreateSubscriptionPaymentMissingURL(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()
	gateway.nextCharge = &tap.Charge{ID: "chg_no_url", Status: tap.StatusInitiated}

	_, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	assert.ErrorIs(t, err, utils.ErrPaymentURLMissing)

	// the gateway accepted the charge, so the transaction stays pending for
	// the reconcile worker
	for _, trx := range trxs.items {
		assert.Equal(t, models.TrxPending, trx.Status)
		require.NotNil(t, trx.TapChargeID)
		assert.Equal(t, "chg_no_url", *trx.TapChargeID)
	}
}

func TestActivateSubscriptionIdempotent(t *testing.T) {
	svc, _, trxs, subs, _ := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)

	sub, err := svc.ActivateSubscription(context.Background(), intent.ChargeID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)

	trx, _ := trxs.GetByID(intent.TransactionID)
	assert.Equal(t, models.TrxCompleted, trx.Status)
	assert.NotNil(t, trx.PaidAt)

	// duplicate webhook: no pending transaction remains
	_, err = svc.ActivateSubscription(context.Background(), intent.ChargeID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.Len(t, subs.subs, 1)
}

func TestActivateSubscriptionExpiresPriorActive(t *testing.T) {
	svc, _, _, subs, _ := newTestSubscriptionService()

	first, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	_, err = svc.ActivateSubscription(context.Background(), first.ChargeID)
	require.NoError(t, err)

	second, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	_, err = svc.ActivateSubscription(context.Background(), second.ChargeID)
	require.NoError(t, err)

	active := 0
	for _, s := range subs.subs {
		if s.Status == models.SubscriptionActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestProcessWebhookChargeCaptured(t *testing.T) {
	svc, _, _, subs, _ := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)

	err = svc.ProcessWebhook(context.Background(), &tap.WebhookPayload{
		Event:  tap.EventChargeCaptured,
		Charge: &tap.Charge{ID: intent.ChargeID, Status: tap.StatusCaptured},
	})
	require.NoError(t, err)
	assert.Len(t, subs.subs, 1)

	// duplicate delivery is swallowed, not an error
	err = svc.ProcessWebhook(context.Background(), &tap.WebhookPayload{
		Event:  tap.EventChargeCaptured,
		Charge: &tap.Charge{ID: intent.ChargeID, Status: tap.StatusCaptured},
	})
	require.NoError(t, err)
	assert.Len(t, subs.subs, 1)
}

func TestProcessWebhookCaptureCompletesNonSubscription(t *testing.T) {
	svc, _, trxs, subs, _ := newTestSubscriptionService()

	// a capture on a non-subscription transaction settles it generically
	trx := &models.PaymentTransaction{
		SupplierID: 1, PlanID: 1, Amount: 29900, Currency: "SAR",
		Type: models.TrxTypeRefund, Status: models.TrxPending,
	}
	require.NoError(t, trxs.Create(trx))
	require.NoError(t, trxs.SetChargeID(trx.ID, "chg_generic_1"))

	err := svc.ProcessWebhook(context.Background(), &tap.WebhookPayload{
		Event:  tap.EventChargeCaptured,
		Charge: &tap.Charge{ID: "chg_generic_1", Status: tap.StatusCaptured},
	})
	require.NoError(t, err)

	after, _ := trxs.GetByID(trx.ID)
	assert.Equal(t, models.TrxCompleted, after.Status)
	assert.NotNil(t, after.PaidAt)
	assert.Empty(t, subs.subs)
}

func TestProcessWebhookChargeFailed(t *testing.T) {
	svc, _, trxs, _, _ := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)

	// built from the wire shape so the gateway response message is populated
	body := `{"event":"CHARGE_FAILED","charge":{"id":"` + intent.ChargeID +
		`","status":"FAILED","response":{"code":"301","message":"Insufficient funds"}}}`
	var payload tap.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	require.NoError(t, svc.ProcessWebhook(context.Background(), &payload))

	trx, _ := trxs.GetByID(intent.TransactionID)
	assert.Equal(t, models.TrxFailed, trx.Status)
	require.NotNil(t, trx.FailureReason)
	assert.Equal(t, "Insufficient funds", *trx.FailureReason)
}

func TestProcessWebhookRefundCaptured(t *testing.T) {
	svc, _, trxs, _, _ := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	_, err = svc.ActivateSubscription(context.Background(), intent.ChargeID)
	require.NoError(t, err)

	err = svc.ProcessWebhook(context.Background(), &tap.WebhookPayload{
		Event:  tap.EventRefundCaptured,
		Refund: &tap.Refund{ID: "re_1", ChargeID: intent.ChargeID, Amount: 29900},
	})
	require.NoError(t, err)

	trx, _ := trxs.GetByID(intent.TransactionID)
	assert.Equal(t, models.TrxRefunded, trx.Status)
	require.NotNil(t, trx.RefundedAmount)
	assert.Equal(t, 29900, *trx.RefundedAmount)
}

func TestProcessWebhookIntermediateEventsIgnored(t *testing.T) {
	svc, _, _, _, _ := newTestSubscriptionService()
	err := svc.ProcessWebhook(context.Background(), &tap.WebhookPayload{
		Event:  tap.EventChargeInitialized,
		Charge: &tap.Charge{ID: "chg_x"},
	})
	assert.NoError(t, err)
}

func TestConfirmPaymentResolvesCaptured(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)

	// webhook never arrives, gateway reports the charge captured
	gateway.charges[intent.ChargeID].Status = tap.StatusCaptured

	trx, err := svc.ConfirmPayment(context.Background(), intent.ChargeID)
	require.NoError(t, err)
	assert.Equal(t, models.TrxCompleted, trx.Status)

	stored, _ := trxs.GetByID(intent.TransactionID)
	assert.Equal(t, models.TrxCompleted, stored.Status)
}

func TestConfirmPaymentLeavesInFlightPending(t *testing.T) {
	svc, _, _, _, gateway := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	gateway.charges[intent.ChargeID].Status = tap.StatusInitiated

	trx, err := svc.ConfirmPayment(context.Background(), intent.ChargeID)
	require.NoError(t, err)
	assert.Equal(t, models.TrxPending, trx.Status)
}

func TestCancelSubscriptionOwnership(t *testing.T) {
	svc, _, _, subs, _ := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	sub, err := svc.ActivateSubscription(context.Background(), intent.ChargeID)
	require.NoError(t, err)

	// another supplier may not cancel it
	err = svc.CancelSubscription(context.Background(), 2, sub.ID)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	// admin path (supplierID 0) may
	require.NoError(t, svc.CancelSubscription(context.Background(), 0, sub.ID))
	assert.Equal(t, models.SubscriptionCancelled, subs.subs[sub.ID].Status)
	assert.False(t, subs.subs[sub.ID].AutoRenew)
	assert.NotNil(t, subs.subs[sub.ID].CancelledAt)
}

func TestUpdateExpiredSubscriptions(t *testing.T) {
	svc, _, _, subs, _ := newTestSubscriptionService()

	subs.subs[1] = &models.UserSubscription{
		ID: 1, SupplierID: 1, PlanID: 1,
		Status: models.SubscriptionActive,
		EndsAt: time.Now().Add(-time.Hour),
	}
	subs.subs[2] = &models.UserSubscription{
		ID: 2, SupplierID: 2, PlanID: 1,
		Status: models.SubscriptionActive,
		EndsAt: time.Now().Add(time.Hour),
	}

	n, err := svc.UpdateExpiredSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.SubscriptionExpired, subs.subs[1].Status)
	assert.NotNil(t, subs.subs[1].CancelledAt, "sweep must stamp cancelled_at")
	assert.Equal(t, models.SubscriptionActive, subs.subs[2].Status)
	assert.Nil(t, subs.subs[2].CancelledAt)
}

func TestReconcileStalePending(t *testing.T) {
	svc, _, trxs, _, gateway := newTestSubscriptionService()

	intent, err := svc.CreateSubscriptionPayment(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	gateway.charges[intent.ChargeID].Status = tap.StatusCaptured

	// a transaction that never reached the gateway
	chargeless := &models.PaymentTransaction{
		SupplierID: 1, PlanID: 1, Amount: 29900, Currency: "SAR",
		Type: models.TrxTypeSubscription, Status: models.TrxPending,
	}
	require.NoError(t, trxs.Create(chargeless))

	// age both past the threshold
	for _, trx := range trxs.items {
		trx.CreatedAt = time.Now().Add(-time.Hour)
	}

	n, err := svc.ReconcileStalePending(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	resolved, _ := trxs.GetByID(intent.TransactionID)
	assert.Equal(t, models.TrxCompleted, resolved.Status)
	failed, _ := trxs.GetByID(chargeless.ID)
	assert.Equal(t, models.TrxFailed, failed.Status)
}
