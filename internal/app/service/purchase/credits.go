package purchase

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/gateway"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

// CreatePurchase opens a pending credit purchase and charges it through the active gateway.
func (s *Service) CreatePurchase(ctx context.Context, userID string, quantity int) (*CreateResult, error) {
	if quantity <= 0 || quantity > maxQuantity {
		return nil, ErrInvalidQuantity
	}
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	g, err := s.gateways.Active(ctx)
	if err != nil {
		return nil, err
	}

	unit := tool.ToCents(s.cfg.Billing.AdditionalReportUnitPrice)
	row := &models.AdditionalReportsPurchase{
		ID:            tool.GenerateUUIDV7(),
		UserID:        userID,
		Quantity:      quantity,
		UnitPrice:     unit,
		TotalPrice:    unit * int64(quantity),
		Gateway:       string(g.Provider()),
		PaymentStatus: types.PaymentStatusPending,
		Status:        types.PaymentStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	log := logctx.FromCtx(ctx, s.log)
	res, err := s.charge(ctx, g, &gateway.ChargeRequest{
		Reference:       row.ID,
		Title:           "Relatórios adicionais",
		Description:     fmt.Sprintf("%d relatório(s) adicional(is) PTAM", quantity),
		Quantity:        quantity,
		Amount:          row.TotalPrice,
		Customer:        s.customer(ctx, profile),
		SuccessURL:      s.successURL(KindCredits, row.ID),
		NotificationURL: s.notificationURL(g),
	})
	if err != nil {
		log.Warnw("gateway charge failed", "purchase_id", row.ID, "gateway", row.Gateway, "error", err)
		s.abandon(ctx, KindCredits, row.ID)
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(row).Update("payment_id", lo.EmptyableToPtr(res.PaymentID)).Error; err != nil {
		return nil, fmt.Errorf("failed to store payment id: %w", err)
	}
	log.Infow("credit purchase created", "purchase_id", row.ID, "payment_id", res.PaymentID, "gateway", row.Gateway, "total", row.TotalPrice)

	return &CreateResult{
		Kind:       KindCredits,
		PurchaseID: row.ID,
		Gateway:    row.Gateway,
		Quantity:   quantity,
		UnitPrice:  tool.FromCents(unit),
		TotalPrice: tool.FromCents(row.TotalPrice),
		Payment:    res,
	}, nil
}

// abandon expires a pending row whose charge could not be created.
func (s *Service) abandon(ctx context.Context, kind Kind, id string) {
	db := s.db.WithContext(context.WithoutCancel(ctx))
	var err error
	if kind == KindCredits {
		err = db.Model(&models.AdditionalReportsPurchase{}).
			Where("id = ? AND payment_status = ?", id, types.PaymentStatusPending).
			Updates(map[string]any{"payment_status": types.PaymentStatusExpired, "status": types.PaymentStatusExpired}).Error
	} else {
		err = db.Model(&models.PlanPurchase{}).
			Where("id = ? AND payment_status = ?", id, types.PaymentStatusPending).
			Update("payment_status", types.PaymentStatusExpired).Error
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to abandon purchase", "purchase_id", id, "error", err)
	}
}

// CheckStatus polls the gateway for a credit purchase of userID.
func (s *Service) CheckStatus(ctx context.Context, userID, purchaseID string) (*Outcome, error) {
	return s.CheckPayment(ctx, userID, KindCredits, purchaseID)
}

// ListByUser returns the credit purchases of a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.AdditionalReportsPurchase, error) {
	var rows []*models.AdditionalReportsPurchase
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	return rows, err
}
