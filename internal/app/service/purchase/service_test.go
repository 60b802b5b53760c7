package purchase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/internal/platform/gateway/gatewaytest"
	"github.com/ptamhub/billing/pkg/config"
	types "github.com/ptamhub/billing/pkg/types"
)

type fixture struct {
	s    *Service
	db   *gorm.DB
	fake *gatewaytest.Fake
	subs *subscription.Service
}

func newFixture(t *testing.T, gws ...gateway.Gateway) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t), gws...)
}

func newFixtureOn(t *testing.T, gdb *gorm.DB, gws ...gateway.Gateway) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := config.Defaults()
	cfg.Server.PublicURL = "https://app.example.com/"
	cfg.Server.CallbackURL = "https://api.example.com"

	fake := gatewaytest.New(gateway.ProviderAsaas)
	fake.Charge = gateway.ChargeResult{RedirectURL: "https://pay.example.com/i/1"}
	gws = append(gws, fake)
	subs := subscription.NewService(cfg, gdb, log)
	s := NewService(cfg, gdb, log,
		subs,
		notification.NewService(gdb, log, nil),
		gateways.NewService(gdb, gateway.NewRegistry(gws...), log),
		notificationlog.New(gdb, log),
		nil,
	)
	dbtest.ActivateGateway(t, gdb, "asaas")
	return &fixture{s: s, db: gdb, fake: fake, subs: subs}
}

func (f *fixture) activeSubscription(t *testing.T, userID string, included int) *models.Subscription {
	t.Helper()
	plan := dbtest.Plan(t, f.db, types.PlanTypeMensalBasico, 9990, included)
	sub, err := f.subs.CreateSubscription(context.Background(), &subscription.CreateRequest{UserID: userID, PlanID: plan.ID})
	require.NoError(t, err)
	return sub
}

func countNotifications(t *testing.T, gdb *gorm.DB, userID, title string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&models.Notification{}).Where("user_id = ? AND title = ?", userID, title).Count(&n).Error)
	return n
}

func TestCreatePurchase_SnapshotsPriceAndCharges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	sub := f.activeSubscription(t, user.ID, 10)
	require.NoError(t, f.db.Model(sub).Update("gateway_customer_id", "cus_1").Error)

	res, err := f.s.CreatePurchase(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, KindCredits, res.Kind)
	assert.Equal(t, 34.99, res.UnitPrice)
	assert.InDelta(t, 174.95, res.TotalPrice, 0.001)
	assert.Equal(t, "https://pay.example.com/i/1", res.Payment.RedirectURL)

	req := f.fake.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, int64(17495), req.Amount)
	assert.Equal(t, res.PurchaseID, req.Reference)
	assert.Equal(t, "cus_1", req.Customer.ID)
	assert.Equal(t, user.CPF, req.Customer.TaxID)
	assert.Equal(t, "https://app.example.com/payment/success?kind=credits&purchase_id="+res.PurchaseID, req.SuccessURL)
	assert.Empty(t, req.NotificationURL)

	var row models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&row, "id = ?", res.PurchaseID).Error)
	assert.Equal(t, types.PaymentStatusPending, row.PaymentStatus)
	assert.Equal(t, types.PaymentStatusPending, row.Status)
	assert.Equal(t, int64(3499), row.UnitPrice)
	assert.Equal(t, int64(17495), row.TotalPrice)
	assert.Equal(t, "asaas", row.Gateway)
	assert.Equal(t, "pay-"+row.ID, lo.FromPtr(row.PaymentID))
}

func TestCreatePurchase_Refusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)

	_, err := f.s.CreatePurchase(ctx, user.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.s.CreatePurchase(ctx, user.ID, -2)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, f.db.Model(user).Update("blocked_until", f.s.now().AddDate(0, 0, 1)).Error)
	_, err = f.s.CreatePurchase(ctx, user.ID, 1)
	require.ErrorIs(t, err, subscription.ErrUserBlocked)

	require.NoError(t, f.db.Model(&models.PaymentGateway{}).Where("1 = 1").Update("is_active", false).Error)
	other := dbtest.Profile(t, f.db, types.RoleUser)
	_, err = f.s.CreatePurchase(ctx, other.ID, 1)
	require.ErrorIs(t, err, gateway.ErrNoActiveGateway)
	assert.Empty(t, f.fake.Requests)
}

func TestCreatePurchase_GatewayFailureExpiresRow(t *testing.T) {
	f := newFixture(t)
	user := dbtest.Profile(t, f.db, types.RoleUser)
	f.fake.ChargeErr = &gateway.ProviderError{Provider: gateway.ProviderAsaas, StatusCode: 400, UserMessage: "invalid CPF/CNPJ, please review your profile"}

	_, err := f.s.CreatePurchase(context.Background(), user.ID, 1)
	require.Error(t, err)
	assert.Equal(t, "invalid CPF/CNPJ, please review your profile", gateway.UserMessage(err))

	var rows []*models.AdditionalReportsPurchase
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, types.PaymentStatusExpired, rows[0].PaymentStatus)
	assert.Nil(t, rows[0].PaymentID)
	assert.Zero(t, countNotifications(t, f.db, user.ID, titlePaymentApproved))
}

func TestCreatePurchase_RendersMissingPixImage(t *testing.T) {
	f := newFixture(t)
	user := dbtest.Profile(t, f.db, types.RoleUser)
	f.fake.Charge = gateway.ChargeResult{PixCode: "00020126580014br.gov.bcb.pix0136123e4567-e12b-12d1-a456-4266554400005204000053039865802BR5913Fulano de Tal6008BRASILIA62070503***63041D3D"}

	res, err := f.s.CreatePurchase(context.Background(), user.ID, 1)
	require.NoError(t, err)
	require.True(t, res.Payment.IsPix())
	assert.Contains(t, res.Payment.PixImageBase64, "data:image/png;base64,")
}

func TestApprove_CreditsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	sub := f.activeSubscription(t, user.ID, 10)

	res, err := f.s.CreatePurchase(ctx, user.ID, 5)
	require.NoError(t, err)
	paid := &gateway.PaymentDetail{Status: gateway.StatusApproved, ProviderStatus: "RECEIVED"}

	out, err := f.s.ApproveByPaymentID(ctx, "pay-"+res.PurchaseID, paid)
	require.NoError(t, err)
	assert.False(t, out.AlreadyApproved)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	assert.Equal(t, sub.ID, lo.FromPtr(out.SubscriptionID))
	assert.Equal(t, "RECEIVED", out.ProviderStatus)

	// a webhook retry and a manual poll arriving after the first approval
	again, err := f.s.ApproveByPaymentID(ctx, "pay-"+res.PurchaseID, paid)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApproved)
	again, err = f.s.ApproveByReference(ctx, res.PurchaseID, paid)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApproved)

	reloaded, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, reloaded.ReportsAvailable)
	assert.Equal(t, int64(1), countNotifications(t, f.db, user.ID, titlePaymentApproved))

	var row models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&row, "id = ?", res.PurchaseID).Error)
	assert.Equal(t, types.PaymentStatusApproved, row.Status)
	require.NotNil(t, row.ApprovedAt)
	require.NotNil(t, row.ExpiresAt)
	assert.WithinDuration(t, row.ApprovedAt.Add(30*24*time.Hour), *row.ExpiresAt, time.Second)
}

func TestApprove_ConcurrentWebhookAndPollCreditOnce(t *testing.T) {
	f := newFixtureOn(t, dbtest.NewFile(t))
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	sub := f.activeSubscription(t, user.ID, 10)

	res, err := f.s.CreatePurchase(ctx, user.ID, 5)
	require.NoError(t, err)
	paid := &gateway.PaymentDetail{Status: gateway.StatusApproved, ProviderStatus: "RECEIVED"}
	f.fake.Detail = *paid

	const workers = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		outcomes = make([]*Outcome, workers)
		errs     = make([]error, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				outcomes[i], errs[i] = f.s.ApproveByPaymentID(ctx, "pay-"+res.PurchaseID, paid)
				return
			}
			outcomes[i], errs[i] = f.s.CheckPayment(ctx, user.ID, KindCredits, res.PurchaseID)
		}()
	}
	close(start)
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, types.PaymentStatusApproved, outcomes[i].Status, "worker %d", i)
	}

	reloaded, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, reloaded.ReportsAvailable)
	assert.Equal(t, int64(1), countNotifications(t, f.db, user.ID, titlePaymentApproved))

	var row models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&row, "id = ?", res.PurchaseID).Error)
	assert.Equal(t, types.PaymentStatusApproved, row.Status)
	assert.Equal(t, lo.ToPtr(sub.ID), row.CreditedSubscriptionID)
}

func TestApprove_NotApprovedDetailIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	res, err := f.s.CreatePurchase(ctx, user.ID, 1)
	require.NoError(t, err)

	out, err := f.s.ApproveByReference(ctx, res.PurchaseID, &gateway.PaymentDetail{Status: gateway.StatusPending, ProviderStatus: "in_process"})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPending, out.Status)
	assert.Equal(t, "in_process", out.ProviderStatus)

	_, err = f.s.ApproveByPaymentID(ctx, "unknown", nil)
	require.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestApprove_WithoutSubscriptionKeepsCreditForLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)

	res, err := f.s.CreatePurchase(ctx, user.ID, 3)
	require.NoError(t, err)
	out, err := f.s.ApproveByReference(ctx, res.PurchaseID, nil)
	require.NoError(t, err)
	assert.Nil(t, out.SubscriptionID)

	sub := f.activeSubscription(t, user.ID, 10)
	assert.Equal(t, 13, sub.ReportsAvailable)

	var row models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&row, "id = ?", res.PurchaseID).Error)
	assert.Equal(t, sub.ID, lo.FromPtr(row.CreditedSubscriptionID))
}

func TestApprove_ExpiredPurchaseIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	sub := f.activeSubscription(t, user.ID, 10)

	res, err := f.s.CreatePurchase(ctx, user.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.AdditionalReportsPurchase{}).Where("id = ?", res.PurchaseID).
		Updates(map[string]any{"payment_status": types.PaymentStatusExpired, "status": types.PaymentStatusExpired}).Error)

	_, err = f.s.ApproveByReference(ctx, res.PurchaseID, nil)
	require.ErrorIs(t, err, ErrPurchaseExpired)

	reloaded, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.ReportsAvailable)
}

func TestCheckStatus_PollsGatewayAndApproves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	stranger := dbtest.Profile(t, f.db, types.RoleUser)
	sub := f.activeSubscription(t, user.ID, 10)

	res, err := f.s.CreatePurchase(ctx, user.ID, 2)
	require.NoError(t, err)

	_, err = f.s.CheckStatus(ctx, stranger.ID, res.PurchaseID)
	require.ErrorIs(t, err, ErrPurchaseNotFound)

	out, err := f.s.CheckStatus(ctx, user.ID, res.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPending, out.Status)

	f.fake.Detail = gateway.PaymentDetail{Status: gateway.StatusApproved, ProviderStatus: "CONFIRMED"}
	out, err = f.s.CheckStatus(ctx, user.ID, res.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	assert.Equal(t, []string{"pay-" + res.PurchaseID, "pay-" + res.PurchaseID}, f.fake.Checked)

	// settled rows answer without asking the gateway again
	out, err = f.s.CheckStatus(ctx, user.ID, res.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	assert.Len(t, f.fake.Checked, 2)

	reloaded, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.ReportsAvailable)

	var logs []*models.PaymentNotificationLog
	require.NoError(t, f.db.Where("payment_id = ?", "pay-"+res.PurchaseID).Find(&logs).Error)
	assert.Len(t, logs, 4)
}

func TestCheckStatus_GatewayError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	res, err := f.s.CreatePurchase(ctx, user.ID, 1)
	require.NoError(t, err)

	f.fake.StatusErr = errors.New("timeout")
	_, err = f.s.CheckStatus(ctx, user.ID, res.PurchaseID)
	require.Error(t, err)

	var failed int64
	require.NoError(t, f.db.Model(&models.PaymentNotificationLog{}).
		Where("status = ?", models.PaymentNotificationLogStatusHandleFailed).Count(&failed).Error)
	assert.Equal(t, int64(1), failed)
}

func TestCheckPayment_LooksUpByReference(t *testing.T) {
	mp := &gatewaytest.ReferenceFake{Fake: gatewaytest.New(gateway.ProviderMercadoPago)}
	mp.Charge = gateway.ChargeResult{PaymentID: "pref-1", RedirectURL: "https://mp.example.com/checkout"}
	f := newFixture(t, mp)
	dbtest.ActivateGateway(t, f.db, "mercadopago")
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	f.activeSubscription(t, user.ID, 10)

	res, err := f.s.CreatePurchase(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "mercadopago", res.Gateway)
	assert.Equal(t, "https://api.example.com/functions/v1/mp-webhook", mp.LastRequest().NotificationURL)

	// switching the active gateway does not change who is polled
	dbtest.ActivateGateway(t, f.db, "asaas")
	mp.Detail = gateway.PaymentDetail{Status: gateway.StatusApproved, ProviderStatus: "approved"}
	out, err := f.s.CheckPayment(ctx, user.ID, KindCredits, res.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	assert.Equal(t, []string{res.PurchaseID}, mp.References)
	assert.Empty(t, mp.Checked)
	assert.Empty(t, f.fake.Checked)
}

func TestPlanPayment_ActivatesPlanAndSavesCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	plan := dbtest.Plan(t, f.db, types.PlanTypeMensalPro, 19990, 30)

	res, err := f.s.CreatePlanPayment(ctx, user.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, KindPlan, res.Kind)
	assert.Equal(t, 199.90, res.TotalPrice)
	assert.Equal(t, int64(19990), f.fake.LastRequest().Amount)

	f.fake.Detail = gateway.PaymentDetail{Status: gateway.StatusApproved, ProviderStatus: "CONFIRMED", CustomerID: "cus_9", SavedMethod: "tok_9"}
	out, err := f.s.ProcessSubscriptionPayment(ctx, user.ID, res.PurchaseID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	require.NotNil(t, out.SubscriptionID)

	sub, err := f.subs.FindActive(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, *out.SubscriptionID, sub.ID)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, 30, sub.ReportsAvailable)
	assert.Equal(t, "tok_9", sub.PaymentMethod)
	assert.Equal(t, "cus_9", sub.GatewayCustomerID)
	assert.Equal(t, "asaas", sub.PaymentGateway)
	assert.Equal(t, int64(1), countNotifications(t, f.db, user.ID, titlePlanActivated))

	again, err := f.s.ApproveByPaymentID(ctx, "pay-"+res.PurchaseID, nil)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApproved)
	assert.Equal(t, sub.ID, lo.FromPtr(again.SubscriptionID))
}

func TestPlanPayment_ChangesExistingPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	old := f.activeSubscription(t, user.ID, 10)
	require.NoError(t, f.db.Model(old).Update("reports_used", 4).Error)
	next := dbtest.Plan(t, f.db, types.PlanTypeMensalPro, 19990, 30)

	res, err := f.s.CreatePlanPayment(ctx, user.ID, next.ID)
	require.NoError(t, err)
	out, err := f.s.ApproveByReference(ctx, res.PurchaseID, nil)
	require.NoError(t, err)

	sub, err := f.subs.Get(ctx, *out.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, 6, sub.CarriedBalance)
	assert.Equal(t, old.PlanID, lo.FromPtr(sub.PreviousPlanID))
	prev, err := f.subs.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionStatusCancelled, prev.Status)
}

func TestCreatePlanPayment_Refusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)

	_, err := f.s.CreatePlanPayment(ctx, user.ID, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, subscription.ErrPlanNotFound)

	plan := dbtest.Plan(t, f.db, types.PlanTypeMensalBasico, 9990, 10)
	require.NoError(t, f.db.Model(plan).Update("active", false).Error)
	_, err = f.s.CreatePlanPayment(ctx, user.ID, plan.ID)
	require.ErrorIs(t, err, subscription.ErrPlanInactive)

	free := dbtest.Plan(t, f.db, types.PlanTypePersonalizado, 0, 10)
	_, err = f.s.CreatePlanPayment(ctx, user.ID, free.ID)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
