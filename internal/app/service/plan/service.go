package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrInvalidPlan  = errors.New("invalid plan")
	ErrPlanInUse    = errors.New("plan is referenced by subscriptions")
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// PlanRequest creates or updates a catalog entry. Price is in BRL.
type PlanRequest struct {
	Name            string         `json:"name" binding:"required"`
	Type            types.PlanType `json:"type" binding:"required"`
	Price           float64        `json:"price"`
	IncludedReports int            `json:"included_reports"`
	Active          *bool          `json:"active"`
}

func (r *PlanRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPlan, r.Type)
	}
	if r.Price < 0 || r.IncludedReports < 0 {
		return fmt.Errorf("%w: price and included_reports cannot be negative", ErrInvalidPlan)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req *PlanRequest) (*models.Plan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p := &models.Plan{
		ID:              tool.GenerateUUIDV7(),
		Name:            strings.TrimSpace(req.Name),
		Type:            req.Type,
		Price:           tool.ToCents(req.Price),
		IncludedReports: req.IncludedReports,
		Active:          req.Active == nil || *req.Active,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("plan created", "plan_id", p.ID, "type", p.Type, "price", p.Price)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req *PlanRequest) (*models.Plan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Type = req.Type
	p.Price = tool.ToCents(req.Price)
	p.IncludedReports = req.IncludedReports
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the catalog ordered by price. activeOnly hides deactivated plans.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	var plans []*models.Plan
	q := s.db.WithContext(ctx).Order("price asc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Delete removes a plan no subscription or checkout has ever referenced; others must be deactivated.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.Subscription{}).Where("plan_id = ? OR previous_plan_id = ?", id, id).Count(&refs).Error; err != nil {
			return err
		}
		if refs == 0 {
			if err := tx.Model(&models.PlanPurchase{}).Where("plan_id = ?", id).Count(&refs).Error; err != nil {
				return err
			}
		}
		if refs > 0 {
			return ErrPlanInUse
		}
		res := tx.Where("id = ?", id).Delete(&models.Plan{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete plan: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPlanNotFound
		}
		return nil
	})
}
