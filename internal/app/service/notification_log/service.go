package notification_log

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
)

const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Entry is one gateway callback or poll to record.
type Entry struct {
	Provider  string
	Source    string
	Event     string
	UserID    string
	PaymentID string
	Data      any
}

// Received records an incoming callback or poll before it is handled.
func (s *Service) Received(ctx context.Context, e Entry) {
	s.save(ctx, e, models.PaymentNotificationLogStatusReceived, nil)
}

// Finished records the handling result. A nil err marks it handled.
func (s *Service) Finished(ctx context.Context, e Entry, result any, err error) {
	status := models.PaymentNotificationLogStatusHandled
	res := map[string]any{"result": result}
	if err != nil {
		status = models.PaymentNotificationLogStatusHandleFailed
		res["error"] = err.Error()
	}
	s.save(ctx, e, status, res)
}

// save persists best effort; a failing audit write never fails the payment flow.
func (s *Service) save(ctx context.Context, e Entry, status models.PaymentNotificationLogStatus, result map[string]any) {
	if s == nil {
		return
	}
	data, _ := json.Marshal(e.Data)
	row := &models.PaymentNotificationLog{
		ID:        tool.GenerateUUIDV7(),
		Provider:  e.Provider,
		Source:    e.Source,
		Event:     e.Event,
		UserID:    lo.EmptyableToPtr(e.UserID),
		TraceID:   logctx.TraceID(ctx),
		PaymentID: e.PaymentID,
		Payload:   datatypes.JSON(data),
		Status:    status,
	}
	if result != nil {
		b, _ := json.Marshal(result)
		row.Result = lo.ToPtr(datatypes.JSON(b))
	}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
	}
}

// ListByPayment returns the audit trail of one payment id, oldest first.
func (s *Service) ListByPayment(ctx context.Context, paymentID string) ([]*models.PaymentNotificationLog, error) {
	var rows []*models.PaymentNotificationLog
	err := s.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("created_at asc, id asc").Find(&rows).Error
	return rows, err
}

var Module = fx.Options(
	fx.Provide(New),
)
