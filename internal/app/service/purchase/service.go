// Package purchase runs the two payment ledgers: additional-report credit purchases and
// plan checkouts. Both share the pending -> approved -> expired lifecycle.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/metrics"
	"github.com/ptamhub/billing/pkg/qrcode"
	types "github.com/ptamhub/billing/pkg/types"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrPurchaseExpired  = errors.New("purchase has expired")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidAmount    = errors.New("plan has no price to charge")
)

// maxQuantity bounds a single credit purchase.
const maxQuantity = 1000

type Kind string

const (
	KindCredits Kind = "credits"
	KindPlan    Kind = "plan"
)

func (k Kind) Valid() bool { return k == KindCredits || k == KindPlan }

type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *zap.SugaredLogger
	subs     *subscription.Service
	notes    *notification.Service
	gateways *gateways.Service
	audit    *notificationlog.Service
	metrics  *metrics.Recorder
	now      func() time.Time
}

func NewService(
	cfg *config.Config,
	db *gorm.DB,
	log *zap.SugaredLogger,
	subs *subscription.Service,
	notes *notification.Service,
	gws *gateways.Service,
	audit *notificationlog.Service,
	rec *metrics.Recorder,
) *Service {
	return &Service{
		cfg:      cfg,
		db:       db,
		log:      log,
		subs:     subs,
		notes:    notes,
		gateways: gws,
		audit:    audit,
		metrics:  rec,
		now:      time.Now,
	}
}

// CreateResult is what the client needs to pay: a redirect or a PIX payload.
type CreateResult struct {
	Kind       Kind                  `json:"kind"`
	PurchaseID string                `json:"purchase_id"`
	Gateway    string                `json:"gateway"`
	Quantity   int                   `json:"quantity,omitempty"`
	UnitPrice  float64               `json:"unit_price,omitempty"`
	TotalPrice float64               `json:"total_price"`
	Payment    *gateway.ChargeResult `json:"payment"`
}

// Outcome is the state of a purchase after a confirmation attempt.
type Outcome struct {
	Kind            Kind                `json:"kind"`
	PurchaseID      string              `json:"purchase_id"`
	UserID          string              `json:"user_id"`
	Status          types.PaymentStatus `json:"status"`
	ProviderStatus  string              `json:"provider_status,omitempty"`
	AlreadyApproved bool                `json:"already_approved"`
	Renewal         bool                `json:"renewal,omitempty"`
	Quantity        int                 `json:"quantity,omitempty"`
	SubscriptionID  *string             `json:"subscription_id,omitempty"`
}

// ledgerRow is a row of either ledger.
type ledgerRow struct {
	kind   Kind
	credit *models.AdditionalReportsPurchase
	plan   *models.PlanPurchase
}

func (r *ledgerRow) id() string {
	if r.credit != nil {
		return r.credit.ID
	}
	return r.plan.ID
}

func (r *ledgerRow) userID() string {
	if r.credit != nil {
		return r.credit.UserID
	}
	return r.plan.UserID
}

func (r *ledgerRow) gatewayName() string {
	if r.credit != nil {
		return r.credit.Gateway
	}
	return r.plan.Gateway
}

func (r *ledgerRow) paymentID() string {
	if r.credit != nil {
		return lo.FromPtr(r.credit.PaymentID)
	}
	return lo.FromPtr(r.plan.PaymentID)
}

func (r *ledgerRow) status() types.PaymentStatus {
	if r.credit != nil {
		return r.credit.PaymentStatus
	}
	return r.plan.PaymentStatus
}

func (r *ledgerRow) outcome() *Outcome {
	o := &Outcome{Kind: r.kind, PurchaseID: r.id(), UserID: r.userID(), Status: r.status()}
	if r.credit != nil {
		o.Quantity = r.credit.Quantity
		o.SubscriptionID = r.credit.CreditedSubscriptionID
	} else {
		o.SubscriptionID = r.plan.SubscriptionID
		o.Renewal = r.plan.Renewal
	}
	return o
}

func (s *Service) findByID(ctx context.Context, tx *gorm.DB, kind Kind, id string) (*ledgerRow, error) {
	if kind == "" || kind == KindCredits {
		var c models.AdditionalReportsPurchase
		err := tx.WithContext(ctx).Where("id = ?", id).First(&c).Error
		if err == nil {
			return &ledgerRow{kind: KindCredits, credit: &c}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if kind == "" || kind == KindPlan {
		var p models.PlanPurchase
		err := tx.WithContext(ctx).Where("id = ?", id).First(&p).Error
		if err == nil {
			return &ledgerRow{kind: KindPlan, plan: &p}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrPurchaseNotFound
}

func (s *Service) findByPaymentID(ctx context.Context, tx *gorm.DB, paymentID string) (*ledgerRow, error) {
	var c models.AdditionalReportsPurchase
	err := tx.WithContext(ctx).Where("payment_id = ?", paymentID).First(&c).Error
	if err == nil {
		return &ledgerRow{kind: KindCredits, credit: &c}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var p models.PlanPurchase
	err = tx.WithContext(ctx).Where("payment_id = ?", paymentID).First(&p).Error
	if err == nil {
		return &ledgerRow{kind: KindPlan, plan: &p}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, ErrPurchaseNotFound
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if p.BlockedAt(s.now()) {
		return nil, subscription.ErrUserBlocked
	}
	return &p, nil
}

func (s *Service) customer(ctx context.Context, p *models.Profile) gateway.Customer {
	c := gateway.Customer{Name: p.Name, Email: p.Email, TaxID: p.CPF, Phone: p.Phone}
	if sub, err := s.subs.FindActive(ctx, p.ID); err == nil && sub != nil {
		c.ID = sub.GatewayCustomerID
	}
	return c
}

func (s *Service) successURL(kind Kind, purchaseID string) string {
	base := strings.TrimRight(s.cfg.Server.PublicURL, "/")
	if base == "" {
		return ""
	}
	q := url.Values{"kind": {string(kind)}, "purchase_id": {purchaseID}}
	return base + "/payment/success?" + q.Encode()
}

func (s *Service) notificationURL(g gateway.Gateway) string {
	base := strings.TrimRight(s.cfg.Server.CallbackURL, "/")
	if base == "" || g.Provider() != gateway.ProviderMercadoPago {
		return ""
	}
	return base + "/functions/v1/mp-webhook"
}

// charge calls the gateway and fills a PIX image when the provider sent only the code.
func (s *Service) charge(ctx context.Context, g gateway.Gateway, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	start := time.Now()
	res, err := g.CreateCharge(ctx, req)
	s.metrics.GatewayCall(string(g.Provider()), "create_charge", start, err)
	if err != nil {
		return nil, err
	}
	if res.IsPix() && res.PixImageBase64 == "" {
		img, qerr := qrcode.GenerateBase64Image(res.PixCode, 0)
		if qerr != nil {
			return nil, fmt.Errorf("failed to render pix qr code: %w", qerr)
		}
		res.PixImageBase64 = img
	}
	return res, nil
}

func (s *Service) checkGateway(ctx context.Context, g gateway.Gateway, row *ledgerRow) (*gateway.PaymentDetail, error) {
	start := time.Now()
	var (
		d   *gateway.PaymentDetail
		err error
	)
	if rl, ok := g.(gateway.ReferenceLookup); ok {
		d, err = rl.StatusByReference(ctx, row.id())
	} else if pid := row.paymentID(); pid != "" {
		d, err = g.CheckStatus(ctx, pid)
	} else {
		d = &gateway.PaymentDetail{Status: gateway.StatusPending}
	}
	s.metrics.GatewayCall(string(g.Provider()), "check_status", start, err)
	return d, err
}
