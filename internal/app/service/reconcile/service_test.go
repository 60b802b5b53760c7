package reconcile

import (
	"context"
	"errors"
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
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/internal/platform/gateway/gatewaytest"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	s         *Service
	db        *gorm.DB
	fake      *gatewaytest.Fake
	purchases *purchase.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	log := zap.NewNop().Sugar()
	cfg := config.Defaults()
	fake := gatewaytest.New(gateway.ProviderAsaas)
	subs := subscription.NewService(cfg, gdb, log)
	notes := notification.NewService(gdb, log, nil)
	gws := gateways.NewService(gdb, gateway.NewRegistry(fake), log)
	purchases := purchase.NewService(cfg, gdb, log, subs, notes, gws, notificationlog.New(gdb, log), nil)
	s := NewService(cfg, gdb, log, subs, notes, purchases, gws, nil, nil)
	s.now = func() time.Time { return testNow }
	return &fixture{s: s, db: gdb, fake: fake, purchases: purchases}
}

func (f *fixture) subscription(t *testing.T, planType types.PlanType, mutate func(*models.Subscription)) *models.Subscription {
	t.Helper()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	plan := dbtest.Plan(t, f.db, planType, 9990, 10)
	sub := &models.Subscription{
		ID:               tool.GenerateUUIDV7(),
		UserID:           user.ID,
		PlanID:           plan.ID,
		Status:           types.SubscriptionStatusActive,
		ReportsUsed:      7,
		ReportsAvailable: 10,
		PeriodStart:      testNow.AddDate(0, -1, 0),
		PeriodEnd:        lo.ToPtr(testNow.Add(-24 * time.Hour)),
		AutoRenew:        true,
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func (f *fixture) reload(t *testing.T, sub *models.Subscription) *models.Subscription {
	t.Helper()
	var out models.Subscription
	require.NoError(t, f.db.First(&out, "id = ?", sub.ID).Error)
	return &out
}

func notificationsFor(t *testing.T, gdb *gorm.DB, userID string) []*models.Notification {
	t.Helper()
	var rows []*models.Notification
	require.NoError(t, gdb.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func creditPurchase(status types.PaymentStatus, userID string, created time.Time, expires *time.Time) *models.AdditionalReportsPurchase {
	return &models.AdditionalReportsPurchase{
		ID: tool.GenerateUUIDV7(), UserID: userID, Quantity: 5, UnitPrice: 3499, TotalPrice: 17495,
		Gateway: "asaas", PaymentID: lo.ToPtr(tool.GenerateUUIDV7()),
		PaymentStatus: status, Status: status, ExpiresAt: expires, CreatedAt: created,
	}
}

func TestExpirePendingPayments_ExpiresOnceWithOneNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.Profile(t, f.db, types.RoleUser)
	plan := dbtest.Plan(t, f.db, types.PlanTypeMensalBasico, 9990, 10)

	stale := creditPurchase(types.PaymentStatusPending, user.ID, testNow.Add(-96*time.Hour), nil)
	fresh := creditPurchase(types.PaymentStatusPending, user.ID, testNow.Add(-24*time.Hour), nil)
	paid := creditPurchase(types.PaymentStatusApproved, user.ID, testNow.Add(-96*time.Hour), lo.ToPtr(testNow.Add(24*time.Hour)))
	require.NoError(t, f.db.Create([]*models.AdditionalReportsPurchase{stale, fresh, paid}).Error)
	stalePlan := &models.PlanPurchase{
		ID: tool.GenerateUUIDV7(), UserID: user.ID, PlanID: plan.ID, Amount: 9990, Gateway: "asaas",
		PaymentStatus: types.PaymentStatusPending, CreatedAt: testNow.Add(-80 * time.Hour),
	}
	require.NoError(t, f.db.Create(stalePlan).Error)

	report, err := f.s.ExpirePendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.ElementsMatch(t, []string{stale.ID, stalePlan.ID}, report.IDs)

	report, err = f.s.ExpirePendingPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	var got models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, types.PaymentStatusExpired, got.PaymentStatus)
	assert.Equal(t, types.PaymentStatusExpired, got.Status)
	require.NoError(t, f.db.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, types.PaymentStatusPending, got.PaymentStatus)
	require.NoError(t, f.db.First(&got, "id = ?", paid.ID).Error)
	assert.Equal(t, types.PaymentStatusApproved, got.PaymentStatus)

	var gotPlan models.PlanPurchase
	require.NoError(t, f.db.First(&gotPlan, "id = ?", stalePlan.ID).Error)
	assert.Equal(t, types.PaymentStatusExpired, gotPlan.PaymentStatus)

	notes := notificationsFor(t, f.db, user.ID)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, titlePaymentExpired, n.Title)
		assert.Equal(t, types.NotificationOriginSystem, n.Origin)
	}
}

func TestExpireCredits(t *testing.T) {
	f := newFixture(t)
	sub := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.ReportsAvailable = 15
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 10))
	})
	user := &models.Profile{ID: sub.UserID}
	lapsed := creditPurchase(types.PaymentStatusApproved, user.ID, testNow.AddDate(0, 0, -31), lo.ToPtr(testNow.Add(-time.Hour)))
	valid := creditPurchase(types.PaymentStatusApproved, user.ID, testNow.AddDate(0, 0, -2), lo.ToPtr(testNow.AddDate(0, 0, 28)))
	require.NoError(t, f.db.Create([]*models.AdditionalReportsPurchase{lapsed, valid}).Error)

	report, err := f.s.ExpireCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{lapsed.ID}, report.IDs)

	var got models.AdditionalReportsPurchase
	require.NoError(t, f.db.First(&got, "id = ?", lapsed.ID).Error)
	assert.Equal(t, types.PaymentStatusExpired, got.PaymentStatus)
	require.NoError(t, f.db.First(&got, "id = ?", valid.ID).Error)
	assert.Equal(t, types.PaymentStatusApproved, got.PaymentStatus)

	notes := notificationsFor(t, f.db, user.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, titleCreditsExpired, notes[0].Title)
	assert.Contains(t, notes[0].Message, "continuam disponíveis")
	// no clawback: credited reports stay on the subscription
	assert.Equal(t, 15, f.reload(t, sub).ReportsAvailable)
}

func TestCheckSubscriptionExpiry_WarnsOnExactDaysOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in7 := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 7).Add(6 * time.Hour))
	})
	in3 := f.subscription(t, types.PlanTypeMensalPro, func(s *models.Subscription) {
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 3).Add(-10 * time.Hour))
	})
	in5 := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 5))
	})
	gone := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.Status = types.SubscriptionStatusExpired
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 7))
	})

	report, err := f.s.CheckSubscriptionExpiry(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{in7.ID, in3.ID}, report.IDs)

	report, err = f.s.CheckSubscriptionExpiry(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	notes := notificationsFor(t, f.db, in7.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Sua assinatura expira em 7 dias", notes[0].Title)
	notes = notificationsFor(t, f.db, in3.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Sua assinatura expira em 3 dias", notes[0].Title)
	assert.Empty(t, notificationsFor(t, f.db, in5.UserID))
	assert.Empty(t, notificationsFor(t, f.db, gone.UserID))
}

func TestRenewExpiredSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	avulso := f.subscription(t, types.PlanTypeAvulso, nil)
	manual := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) { s.AutoRenew = false })
	noCard := f.subscription(t, types.PlanTypeMensalBasico, nil)
	card := f.subscription(t, types.PlanTypeMensalPro, func(s *models.Subscription) {
		s.PaymentMethod = "tok_1"
		s.GatewayCustomerID = "cus_1"
		s.PaymentGateway = "asaas"
	})
	current := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.PeriodEnd = lo.ToPtr(testNow.AddDate(0, 0, 10))
	})

	report, err := f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Renewed)
	assert.Equal(t, 2, report.Expired)
	assert.Zero(t, report.Failed)
	assert.ElementsMatch(t, []string{manual.ID, noCard.ID, card.ID}, report.IDs)

	assert.Equal(t, types.SubscriptionStatusActive, f.reload(t, avulso).Status)
	assert.Equal(t, types.SubscriptionStatusActive, f.reload(t, current).Status)
	assert.Empty(t, notificationsFor(t, f.db, avulso.UserID))

	got := f.reload(t, manual)
	assert.Equal(t, types.SubscriptionStatusExpired, got.Status)
	notes := notificationsFor(t, f.db, manual.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, titleExpired, notes[0].Title)
	assert.Equal(t, types.SubscriptionStatusExpired, f.reload(t, noCard).Status)

	renewed := f.reload(t, card)
	assert.Equal(t, types.SubscriptionStatusActive, renewed.Status)
	assert.Equal(t, 0, renewed.ReportsUsed)
	assert.Equal(t, 10, renewed.ReportsAvailable)
	require.NotNil(t, renewed.PeriodEnd)
	assert.True(t, renewed.PeriodEnd.After(testNow))
	require.Len(t, f.fake.SavedRequests, 1)
	assert.Equal(t, int64(9990), f.fake.SavedRequests[0].Amount)
	assert.Equal(t, "tok_1", f.fake.SavedRequests[0].PaymentMethod)
	assert.Equal(t, "cus_1", f.fake.SavedRequests[0].CustomerID)

	var ledger []*models.PlanPurchase
	require.NoError(t, f.db.Where("subscription_id = ?", card.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, types.PaymentStatusApproved, ledger[0].PaymentStatus)
	assert.True(t, ledger[0].Renewal)
	assert.Equal(t, ledger[0].ID, f.fake.SavedRequests[0].Reference)
	notes = notificationsFor(t, f.db, card.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Assinatura renovada", notes[0].Title)

	// renewed periods are in the future, expired rows are no longer active
	report, err = f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Len(t, f.fake.SavedRequests, 1)
}

func TestRenewExpiredSubscriptions_DeclinedCardExpires(t *testing.T) {
	f := newFixture(t)
	f.fake.SavedErr = &gateway.ProviderError{Provider: gateway.ProviderAsaas, StatusCode: 400, Code: "invalid_creditCard"}
	sub := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) {
		s.PaymentMethod = "tok_1"
		s.PaymentGateway = "asaas"
	})

	report, err := f.s.RenewExpiredSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, types.SubscriptionStatusExpired, f.reload(t, sub).Status)
	rows := f.renewals(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, types.PaymentStatusExpired, rows[0].PaymentStatus)
}

func cardSubscription(s *models.Subscription) {
	s.PaymentMethod = "tok_1"
	s.GatewayCustomerID = "cus_1"
	s.PaymentGateway = "asaas"
}

func (f *fixture) renewals(t *testing.T, sub *models.Subscription) []*models.PlanPurchase {
	t.Helper()
	var rows []*models.PlanPurchase
	require.NoError(t, f.db.Where("subscription_id = ? AND renewal = ?", sub.ID, true).Order("created_at asc").Find(&rows).Error)
	return rows
}

func TestRenewExpiredSubscriptions_PendingChargeAwaitsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.SavedDetail = &gateway.PaymentDetail{PaymentID: "pay_pending_1", Status: gateway.StatusPending, ProviderStatus: "AWAITING_RISK_ANALYSIS"}
	sub := f.subscription(t, types.PlanTypeMensalPro, cardSubscription)

	report, err := f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Renewed)
	assert.Zero(t, report.Expired)
	assert.Equal(t, 1, report.Awaiting)
	assert.Equal(t, types.SubscriptionStatusActive, f.reload(t, sub).Status)

	rows := f.renewals(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, types.PaymentStatusPending, rows[0].PaymentStatus)
	assert.Equal(t, "pay_pending_1", lo.FromPtr(rows[0].PaymentID))
	assert.Equal(t, rows[0].ID, f.fake.SavedRequests[0].Reference)

	// the card is not charged again while the first charge is open
	report, err = f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Awaiting)
	assert.Len(t, f.fake.SavedRequests, 1)

	// the gateway confirms later; the webhook resolves the row by its external reference
	out, err := f.purchases.ApproveByReference(ctx, rows[0].ID, &gateway.PaymentDetail{
		PaymentID: "pay_pending_1", Status: gateway.StatusApproved, ProviderStatus: "CONFIRMED", ExternalReference: rows[0].ID,
	})
	require.NoError(t, err)
	assert.True(t, out.Renewal)
	assert.Equal(t, types.PaymentStatusApproved, out.Status)
	assert.Equal(t, sub.ID, lo.FromPtr(out.SubscriptionID))

	renewed := f.reload(t, sub)
	assert.Equal(t, types.SubscriptionStatusActive, renewed.Status)
	assert.Equal(t, 0, renewed.ReportsUsed)
	assert.Equal(t, 10, renewed.ReportsAvailable)
	assert.True(t, renewed.PeriodEnd.Equal(sub.PeriodEnd.AddDate(0, 1, 0)))
	assert.Equal(t, types.PaymentStatusApproved, f.renewals(t, sub)[0].PaymentStatus)

	// a repeated webhook is a no-op
	out, err = f.purchases.ApproveByPaymentID(ctx, "pay_pending_1", &gateway.PaymentDetail{Status: gateway.StatusApproved})
	require.NoError(t, err)
	assert.True(t, out.AlreadyApproved)
	assert.Equal(t, 10, f.reload(t, sub).ReportsAvailable)

	report, err = f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Zero(t, report.Awaiting)
	assert.Len(t, f.fake.SavedRequests, 1)
}

func TestRenewExpiredSubscriptions_UnconfirmedChargeExpiresSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.SavedDetail = &gateway.PaymentDetail{PaymentID: "pay_pending_2", Status: gateway.StatusPending, ProviderStatus: "PENDING"}
	sub := f.subscription(t, types.PlanTypeMensalBasico, cardSubscription)

	_, err := f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)

	// four days later the pending sweep gives up on the charge
	f.s.now = func() time.Time { return testNow.Add(96 * time.Hour) }
	report, err := f.s.ExpirePendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{f.renewals(t, sub)[0].ID}, report.IDs)

	report, err = f.s.RenewExpiredSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, types.SubscriptionStatusExpired, f.reload(t, sub).Status)
	assert.Len(t, f.fake.SavedRequests, 1)
}

func TestRenewExpiredSubscriptions_RejectedChargeExpires(t *testing.T) {
	f := newFixture(t)
	f.fake.SavedDetail = &gateway.PaymentDetail{PaymentID: "pay_rejected_1", Status: gateway.StatusOther, ProviderStatus: "REFUSED"}
	sub := f.subscription(t, types.PlanTypeMensalBasico, cardSubscription)

	report, err := f.s.RenewExpiredSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, types.SubscriptionStatusExpired, f.reload(t, sub).Status)
	rows := f.renewals(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, types.PaymentStatusExpired, rows[0].PaymentStatus)
}

type busyLocker struct{ err error }

func (b busyLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, b.err
}

func TestSweep_SkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	manual := f.subscription(t, types.PlanTypeMensalBasico, func(s *models.Subscription) { s.AutoRenew = false })

	f.s.locker = busyLocker{}
	report, err := f.s.Run(context.Background(), JobRenewExpiredSubscriptions)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, types.SubscriptionStatusActive, f.reload(t, manual).Status)

	f.s.locker = busyLocker{err: errors.New("redis down")}
	_, err = f.s.Run(context.Background(), JobExpireCredits)
	require.Error(t, err)

	_, err = f.s.Run(context.Background(), "nope")
	require.Error(t, err)
}
