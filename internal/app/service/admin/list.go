package admin

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/ptamhub/billing/internal/models"
	types "github.com/ptamhub/billing/pkg/types"
)

// Page is one slice of an admin listing.
type Page[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
}

var (
	purchaseFields     = []string{"id", "user_id", "quantity", "total_price", "gateway", "payment_id", "payment_status", "approved_at", "expires_at", "created_at"}
	planPurchaseFields = []string{"id", "user_id", "plan_id", "amount", "gateway", "payment_id", "payment_status", "approved_at", "created_at"}
	profileFields      = []string{"id", "name", "email", "cpf", "role", "blocked_until", "created_at"}
	adminLogFields     = []string{"admin_id", "action", "target_user_id", "created_at"}
)

func (s *Service) ListPurchases(ctx context.Context, req *types.ListRequest) (*Page[models.AdditionalReportsPurchase], error) {
	return scan[models.AdditionalReportsPurchase](ctx, s.db, req, purchaseFields)
}

func (s *Service) ListPlanPurchases(ctx context.Context, req *types.ListRequest) (*Page[models.PlanPurchase], error) {
	return scan[models.PlanPurchase](ctx, s.db, req, planPurchaseFields)
}

func (s *Service) ListProfiles(ctx context.Context, req *types.ListRequest) (*Page[models.Profile], error) {
	return scan[models.Profile](ctx, s.db, req, profileFields)
}

func (s *Service) ListAdminLogs(ctx context.Context, req *types.ListRequest) (*Page[models.AdminLog], error) {
	return scan[models.AdminLog](ctx, s.db, req, adminLogFields)
}

// scan pages through T with whitelisted filters, newest first unless asked otherwise.
func scan[T any](ctx context.Context, db *gorm.DB, req *types.ListRequest, allowed []string) (*Page[T], error) {
	if req == nil {
		req = &types.ListRequest{}
	}
	if !req.Filters.AllowedIn(allowed) {
		return nil, ErrFilterNotAllowed
	}
	req.Normalize(allowed, "created_at")

	tx := db.WithContext(ctx).Model(new(T))
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{req.Filters}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	rows := make([]*T, 0, req.Size)
	q := tx.Limit(req.Size).Offset(req.From).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.Desc()}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	return &Page[T]{Items: rows, Total: total}, nil
}
