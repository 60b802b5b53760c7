package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

var (
	day1    = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day3    = time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	s := NewService(gdb, zap.NewNop().Sugar())
	s.now = func() time.Time { return testNow }
	return s, gdb
}

func creditPurchase(t *testing.T, gdb *gorm.DB, userID string, total int64, approvedAt *time.Time) {
	t.Helper()
	status := lo.Ternary(approvedAt != nil, types.PaymentStatusApproved, types.PaymentStatusPending)
	require.NoError(t, gdb.Create(&models.AdditionalReportsPurchase{
		ID: tool.GenerateUUIDV7(), UserID: userID, Quantity: 1, UnitPrice: total, TotalPrice: total,
		Gateway: "asaas", PaymentStatus: status, Status: status, ApprovedAt: approvedAt,
	}).Error)
}

func planPurchase(t *testing.T, gdb *gorm.DB, userID, planID string, amount int64, approvedAt time.Time) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.PlanPurchase{
		ID: tool.GenerateUUIDV7(), UserID: userID, PlanID: planID, Amount: amount,
		Gateway: "mercadopago", PaymentStatus: types.PaymentStatusApproved, ApprovedAt: &approvedAt,
	}).Error)
}

func seedPayments(t *testing.T, gdb *gorm.DB) (user *models.Profile, plan *models.Plan) {
	t.Helper()
	user = dbtest.Profile(t, gdb, types.RoleUser)
	plan = dbtest.Plan(t, gdb, types.PlanTypeMensalBasico, 9990, 10)
	creditPurchase(t, gdb, user.ID, 3499, &day1)
	creditPurchase(t, gdb, user.ID, 6998, &day1)
	creditPurchase(t, gdb, user.ID, 3499, nil)
	creditPurchase(t, gdb, user.ID, 10497, &day3)
	planPurchase(t, gdb, user.ID, plan.ID, 9990, day3)
	return user, plan
}

func request(filters []*types.CommonFilter, ids ...StatisticType) *Request {
	return &Request{
		Filters:   filters,
		DataItems: lo.Map(ids, func(id StatisticType, _ int) *DataItem { return &DataItem{ID: id} }),
	}
}

func TestDailyPaymentsAndRevenue(t *testing.T) {
	s, gdb := newTestService(t)
	seedPayments(t, gdb)

	res, err := s.GetStatistics(context.Background(), request(nil, StatisticTypeDailyPaymentCount, StatisticTypeDailyRevenue))
	require.NoError(t, err)

	assert.Equal(t, []ResponseDataItem{
		{Date: "2026-03-01", Label: LabelCredits, Value: 2},
		{Date: "2026-03-03", Label: LabelCredits, Value: 1},
		{Date: "2026-03-03", Label: LabelPlan, Value: 1},
	}, res.DataItems[StatisticTypeDailyPaymentCount])

	assert.Equal(t, []ResponseDataItem{
		{Date: "2026-03-01", Label: LabelCredits, Value: 10497},
		{Date: "2026-03-03", Label: LabelCredits, Value: 10497},
		{Date: "2026-03-03", Label: LabelPlan, Value: 9990},
	}, res.DataItems[StatisticTypeDailyRevenue])
}

func TestTotalRevenue_FillsGaps(t *testing.T) {
	s, gdb := newTestService(t)
	seedPayments(t, gdb)

	res, err := s.GetStatistics(context.Background(), request(nil, StatisticTypeTotalRevenue))
	require.NoError(t, err)
	assert.Equal(t, []ResponseDataItem{
		{Date: "2026-03-01", Label: LabelCredits, Value: 10497},
		{Date: "2026-03-01", Label: LabelPlan, Value: 0},
		{Date: "2026-03-02", Label: LabelCredits, Value: 10497},
		{Date: "2026-03-02", Label: LabelPlan, Value: 0},
		{Date: "2026-03-03", Label: LabelCredits, Value: 20994},
		{Date: "2026-03-03", Label: LabelPlan, Value: 9990},
	}, res.DataItems[StatisticTypeTotalRevenue])
}

func TestTotalRevenue_Empty(t *testing.T) {
	s, _ := newTestService(t)
	res, err := s.GetStatistics(context.Background(), request(nil, StatisticTypeTotalRevenue))
	require.NoError(t, err)
	assert.Empty(t, res.DataItems[StatisticTypeTotalRevenue])
}

func TestFilters(t *testing.T) {
	s, gdb := newTestService(t)
	_, plan := seedPayments(t, gdb)
	ctx := context.Background()

	kind := []*types.CommonFilter{{Field: FilterKind, Operator: types.CommonFilterOperatorEq, Values: []any{"plan"}}}
	res, err := s.GetStatistics(ctx, request(kind, StatisticTypeDailyRevenue, StatisticTypeActiveSubscriptionCount))
	require.NoError(t, err)
	assert.Equal(t, []ResponseDataItem{{Date: "2026-03-03", Label: LabelPlan, Value: 9990}}, res.DataItems[StatisticTypeDailyRevenue])
	v, ok := res.DataItems[StatisticTypeActiveSubscriptionCount]
	assert.True(t, ok)
	assert.Nil(t, v)

	gw := []*types.CommonFilter{{Field: "gateway", Operator: types.CommonFilterOperatorEq, Values: []any{"asaas"}}}
	res, err = s.GetStatistics(ctx, request(gw, StatisticTypeDailyPaymentCount))
	require.NoError(t, err)
	assert.Len(t, res.DataItems[StatisticTypeDailyPaymentCount], 2)

	byPlan := []*types.CommonFilter{{Field: "plan_id", Operator: types.CommonFilterOperatorEq, Values: []any{plan.ID}}}
	res, err = s.GetStatistics(ctx, request(byPlan, StatisticTypeDailyRevenue))
	require.NoError(t, err)
	assert.Nil(t, res.DataItems[StatisticTypeDailyRevenue])

	bad := []*types.CommonFilter{{Field: "total_price", Operator: types.CommonFilterOperatorGt, Values: []any{0}}}
	_, err = s.GetStatistics(ctx, request(bad, StatisticTypeDailyRevenue))
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = s.GetStatistics(ctx, request(nil, StatisticType("churn")))
	require.Error(t, err)
}

func TestSubscriptionStatistics(t *testing.T) {
	s, gdb := newTestService(t)
	plan := dbtest.Plan(t, gdb, types.PlanTypeMensalBasico, 9990, 10)
	avulso := dbtest.Plan(t, gdb, types.PlanTypeAvulso, 3499, 1)
	future := testNow.Add(10 * 24 * time.Hour)
	past := testNow.Add(-time.Hour)

	subs := []struct {
		plan      *models.Plan
		status    types.SubscriptionStatus
		end       *time.Time
		autoRenew bool
		created   time.Time
	}{
		{plan, types.SubscriptionStatusActive, &future, true, day1},
		{plan, types.SubscriptionStatusActive, &future, false, day1},
		{avulso, types.SubscriptionStatusActive, nil, true, day3},
		{plan, types.SubscriptionStatusActive, &past, true, day3},
		{plan, types.SubscriptionStatusExpired, &past, true, day3},
	}
	for _, c := range subs {
		u := dbtest.Profile(t, gdb, types.RoleUser)
		require.NoError(t, gdb.Create(&models.Subscription{
			ID: tool.GenerateUUIDV7(), UserID: u.ID, PlanID: c.plan.ID, Status: c.status,
			PeriodStart: c.created, PeriodEnd: c.end, AutoRenew: c.autoRenew, CreatedAt: c.created,
		}).Error)
	}

	res, err := s.GetStatistics(context.Background(), request(nil, StatisticTypeActiveSubscriptionCount, StatisticTypeDailyNewSubscriptionCount))
	require.NoError(t, err)
	assert.Equal(t, []ResponseDataItem{{Date: "2026-03-10", Value: 3, Value2: 1}}, res.DataItems[StatisticTypeActiveSubscriptionCount])
	assert.Equal(t, []ResponseDataItem{
		{Date: "2026-03-01", Value: 2},
		{Date: "2026-03-03", Value: 3},
	}, res.DataItems[StatisticTypeDailyNewSubscriptionCount])

	byPlan := []*types.CommonFilter{{Field: "plan_id", Operator: types.CommonFilterOperatorEq, Values: []any{avulso.ID}}}
	res, err = s.GetStatistics(context.Background(), request(byPlan, StatisticTypeActiveSubscriptionCount))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DataItems[StatisticTypeActiveSubscriptionCount][0].Value)
}

func TestRenewalSuccessRate(t *testing.T) {
	s, gdb := newTestService(t)
	entry := func(reason types.SubscriptionChangeReason, cause string, at time.Time) {
		extra := datatypes.JSONMap{}
		if cause != "" {
			extra["cause"] = cause
		}
		require.NoError(t, gdb.Create(&models.SubscriptionLog{
			ID: tool.GenerateUUIDV7(), UserID: tool.GenerateUUIDV7(), SubscriptionID: tool.GenerateUUIDV7(),
			Reason: reason, Extra: extra, CreatedAt: at,
		}).Error)
	}
	entry(types.SubscriptionChangeReasonRenew, "", day1)
	entry(types.SubscriptionChangeReasonRenew, "", day1)
	entry(types.SubscriptionChangeReasonRenew, "", day1)
	entry(types.SubscriptionChangeReasonExpire, "renewal_failed", day1)
	entry(types.SubscriptionChangeReasonExpire, "auto_renew_disabled", day1)
	entry(types.SubscriptionChangeReasonExpire, "renewal_failed", day3)
	entry(types.SubscriptionChangeReasonCredit, "", day3)

	res, err := s.GetStatistics(context.Background(), request(nil, StatisticTypeRenewalSuccessRate))
	require.NoError(t, err)
	assert.Equal(t, []ResponseDataItem{
		{Date: "2026-03-03", Value: 0, Value2: 1, Value3: 0},
		{Date: "2026-03-01", Value: 7500, Value2: 4, Value3: 3},
	}, res.DataItems[StatisticTypeRenewalSuccessRate])
}
