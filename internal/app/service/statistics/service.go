package statistics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	types "github.com/ptamhub/billing/pkg/types"
)

type StatisticType string

const (
	// Approved payments per day, labelled by purchase kind.
	StatisticTypeDailyPaymentCount StatisticType = "daily_payment_count"
	StatisticTypeDailyRevenue      StatisticType = "daily_revenue"
	// Running revenue total per kind, one point per calendar day.
	StatisticTypeTotalRevenue StatisticType = "total_revenue"

	StatisticTypeActiveSubscriptionCount   StatisticType = "active_subscription_count"
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	// Value is the success rate in basis points, Value2 the attempts and Value3 the successes.
	StatisticTypeRenewalSuccessRate StatisticType = "renewal_success_rate"
)

const (
	LabelCredits = "credits"
	LabelPlan    = "plan"
)

var ErrInvalidFilter = errors.New("filter not supported")

// FilterKind restricts payment statistics to one ledger.
const FilterKind = "kind"

var paymentStats = []StatisticType{StatisticTypeDailyPaymentCount, StatisticTypeDailyRevenue, StatisticTypeTotalRevenue}

// validFilters maps filter fields to the statistics they apply to. Statistics outside the list return no data.
var validFilters = map[string][]StatisticType{
	FilterKind:    paymentStats,
	"gateway":     paymentStats,
	"approved_at": paymentStats,
	"user_id":     append([]StatisticType{StatisticTypeDailyNewSubscriptionCount}, paymentStats...),
	"plan_id":     {StatisticTypeDailyNewSubscriptionCount, StatisticTypeActiveSubscriptionCount},
}

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*DataItem           `json:"data_items"`
}

// Validate rejects unknown filter fields.
func (r *Request) Validate() error {
	for _, f := range r.Filters {
		if f == nil {
			continue
		}
		if _, ok := validFilters[f.Field]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidFilter, f.Field)
		}
	}
	return nil
}

// applies reports whether every filter is usable by statisticType.
func (r *Request) applies(statisticType StatisticType) bool {
	for _, f := range r.Filters {
		if f != nil && !lo.Contains(validFilters[f.Field], statisticType) {
			return false
		}
	}
	return true
}

// sqlFilters drops the filters resolved in Go.
func (r *Request) sqlFilters() types.Filters {
	return lo.Filter(r.Filters, func(f *types.CommonFilter, _ int) bool {
		return f != nil && f.Field != FilterKind
	})
}

func (r *Request) wantsKind(kind string) bool {
	for _, f := range r.Filters {
		if f == nil || f.Field != FilterKind || len(f.Values) == 0 {
			continue
		}
		if !lo.ContainsBy(f.Values, func(v any) bool { return fmt.Sprint(v) == kind }) {
			return false
		}
	}
	return true
}

type ResponseDataItem struct {
	Date   string `json:"date"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
	Value3 int64  `json:"value3,omitempty"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

// Service aggregates the billing ledgers for the admin dashboard.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

func day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// payment is an approved ledger row of either kind.
type payment struct {
	kind       string
	amount     int64
	approvedAt time.Time
}

func (s *Service) approvedPayments(ctx context.Context, r *Request) ([]payment, error) {
	where := clause.Where{Exprs: []clause.Expression{r.sqlFilters()}}
	var out []payment
	if r.wantsKind(LabelCredits) {
		var rows []*models.AdditionalReportsPurchase
		if err := s.db.WithContext(ctx).Where("approved_at IS NOT NULL").Where(where).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load credit purchases: %w", err)
		}
		for _, p := range rows {
			out = append(out, payment{kind: LabelCredits, amount: p.TotalPrice, approvedAt: *p.ApprovedAt})
		}
	}
	if r.wantsKind(LabelPlan) {
		var rows []*models.PlanPurchase
		if err := s.db.WithContext(ctx).Where("approved_at IS NOT NULL").Where(where).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load plan purchases: %w", err)
		}
		for _, p := range rows {
			out = append(out, payment{kind: LabelPlan, amount: p.Amount, approvedAt: *p.ApprovedAt})
		}
	}
	return out, nil
}

type dayLabel struct{ date, label string }

// daily groups payments by UTC day and kind, ordered by date then label.
func daily(payments []payment, value func(payment) int64) []ResponseDataItem {
	sums := make(map[dayLabel]int64)
	for _, p := range payments {
		sums[dayLabel{day(p.approvedAt), p.kind}] += value(p)
	}
	items := make([]ResponseDataItem, 0, len(sums))
	for k, v := range sums {
		items = append(items, ResponseDataItem{Date: k.date, Label: k.label, Value: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].Label < items[j].Label
	})
	return items
}

func (s *Service) getDailyPaymentCount(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	payments, err := s.approvedPayments(ctx, r)
	if err != nil {
		return nil, err
	}
	return daily(payments, func(payment) int64 { return 1 }), nil
}

func (s *Service) getDailyRevenue(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	payments, err := s.approvedPayments(ctx, r)
	if err != nil {
		return nil, err
	}
	return daily(payments, func(p payment) int64 { return p.amount }), nil
}

// getTotalRevenue fills every day between the first and last payment for every kind seen.
func (s *Service) getTotalRevenue(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	payments, err := s.approvedPayments(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return []ResponseDataItem{}, nil
	}
	perDay := daily(payments, func(p payment) int64 { return p.amount })
	labels := lo.Uniq(lo.Map(perDay, func(it ResponseDataItem, _ int) string { return it.Label }))
	sort.Strings(labels)
	byKey := lo.SliceToMap(perDay, func(it ResponseDataItem) (dayLabel, int64) {
		return dayLabel{it.Date, it.Label}, it.Value
	})

	first, _ := time.Parse(time.DateOnly, perDay[0].Date)
	last, _ := time.Parse(time.DateOnly, perDay[len(perDay)-1].Date)
	running := make(map[string]int64, len(labels))
	var items []ResponseDataItem
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(time.DateOnly)
		for _, label := range labels {
			running[label] += byKey[dayLabel{date, label}]
			items = append(items, ResponseDataItem{Date: date, Label: label, Value: running[label]})
		}
	}
	return items, nil
}

// getActiveSubscriptionCount reports active, unexpired subscriptions; Value2 counts those renewing automatically.
func (s *Service) getActiveSubscriptionCount(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	now := s.now()
	var rows []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ?", types.SubscriptionStatusActive).
		Where(clause.Where{Exprs: []clause.Expression{r.sqlFilters()}}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	live := lo.Filter(rows, func(sub *models.Subscription, _ int) bool { return !sub.ExpiredAt(now) })
	renewing := lo.CountBy(live, func(sub *models.Subscription) bool { return sub.AutoRenew && sub.PeriodEnd != nil })
	return []ResponseDataItem{{Date: day(now), Value: int64(len(live)), Value2: int64(renewing)}}, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, r *Request) ([]ResponseDataItem, error) {
	var rows []*models.Subscription
	if err := s.db.WithContext(ctx).Where(clause.Where{Exprs: []clause.Expression{r.sqlFilters()}}).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	users := make(map[string]map[string]struct{})
	for _, sub := range rows {
		d := day(sub.CreatedAt)
		if users[d] == nil {
			users[d] = make(map[string]struct{})
		}
		users[d][sub.UserID] = struct{}{}
	}
	items := make([]ResponseDataItem, 0, len(users))
	for d, u := range users {
		items = append(items, ResponseDataItem{Date: d, Value: int64(len(u))})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date < items[j].Date })
	return items, nil
}

// getRenewalSuccessRate compares renewals with expiries caused by a failed charge, per day.
func (s *Service) getRenewalSuccessRate(ctx context.Context, _ *Request) ([]ResponseDataItem, error) {
	var logs []*models.SubscriptionLog
	err := s.db.WithContext(ctx).
		Select("id", "reason", "extra", "created_at").
		Where("reason IN ?", []types.SubscriptionChangeReason{types.SubscriptionChangeReasonRenew, types.SubscriptionChangeReasonExpire}).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription log: %w", err)
	}
	type tally struct{ attempts, successes int64 }
	days := make(map[string]*tally)
	for _, l := range logs {
		success := l.Reason == types.SubscriptionChangeReasonRenew
		if !success && fmt.Sprint(l.Extra["cause"]) != "renewal_failed" {
			continue
		}
		d := day(l.CreatedAt)
		if days[d] == nil {
			days[d] = &tally{}
		}
		days[d].attempts++
		if success {
			days[d].successes++
		}
	}
	items := make([]ResponseDataItem, 0, len(days))
	for d, t := range days {
		items = append(items, ResponseDataItem{Date: d, Value: t.successes * 10000 / t.attempts, Value2: t.attempts, Value3: t.successes})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date > items[j].Date })
	return items, nil
}

func (s *Service) getStatistic(ctx context.Context, r *Request, item *DataItem) ([]ResponseDataItem, error) {
	switch item.ID {
	case StatisticTypeDailyPaymentCount:
		return s.getDailyPaymentCount(ctx, r)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, r)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, r)
	case StatisticTypeActiveSubscriptionCount:
		return s.getActiveSubscriptionCount(ctx, r)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, r)
	case StatisticTypeRenewalSuccessRate:
		return s.getRenewalSuccessRate(ctx, r)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", item.ID)
	}
}

// GetStatistics computes every requested data item concurrently.
func (s *Service) GetStatistics(ctx context.Context, r *Request) (*Response, error) {
	if r == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(r.DataItems))
	resChan := make(chan lo.Entry[StatisticType, []ResponseDataItem], len(r.DataItems))

	for _, item := range r.DataItems {
		if item == nil {
			continue
		}
		wg.Add(1)
		go func(di *DataItem) {
			defer wg.Done()
			if !r.applies(di.ID) {
				resChan <- lo.Entry[StatisticType, []ResponseDataItem]{Key: di.ID}
				return
			}
			res, err := s.getStatistic(ctx, r, di)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", di.ID, err)
				return
			}
			resChan <- lo.Entry[StatisticType, []ResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}
	wg.Wait()
	close(errChan)
	close(resChan)

	if err := <-errChan; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("statistics failed", "error", err)
		return nil, err
	}
	results := make(map[StatisticType][]ResponseDataItem, len(r.DataItems))
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return &Response{DataItems: results}, nil
}
