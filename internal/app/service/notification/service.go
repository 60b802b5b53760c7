package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/mail"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/tool"
	types "github.com/ptamhub/billing/pkg/types"
)

var (
	ErrNotFound      = errors.New("notification not found")
	ErrNotDeletable  = errors.New("only individual admin notifications can be deleted")
	ErrEmptyContent  = errors.New("title and message are required")
	ErrUnknownTarget = errors.New("recipient not found")
)

const broadcastBatchSize = 500

type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	sender mail.Sender
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, sender mail.Sender) *Service {
	if sender == nil {
		sender = mail.NoopSender{}
	}
	return &Service{db: db, log: log, sender: sender}
}

func validate(title, message string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Broadcast fans a message out to every profile, one row each.
func (s *Service) Broadcast(ctx context.Context, adminID, title, message string) (int, error) {
	if err := validate(title, message); err != nil {
		return 0, err
	}
	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Pluck("id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(userIDs) == 0 {
		return 0, nil
	}
	rows := lo.Map(userIDs, func(uid string, _ int) *models.Notification {
		return &models.Notification{
			ID:        tool.GenerateUUIDV7(),
			UserID:    uid,
			Title:     title,
			Message:   message,
			IsMass:    true,
			Origin:    types.NotificationOriginAdmin,
			CreatedBy: lo.ToPtr(adminID),
		}
	})
	if err := s.db.WithContext(ctx).CreateInBatches(rows, broadcastBatchSize).Error; err != nil {
		return 0, fmt.Errorf("failed to insert broadcast: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("notification broadcast", "admin_id", adminID, "recipients", len(rows))
	return len(rows), nil
}

// Send delivers an individual admin notification.
func (s *Service) Send(ctx context.Context, adminID, userID, title, message string) (*models.Notification, error) {
	if err := validate(title, message); err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUnknownTarget
	}
	n := &models.Notification{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Origin:    types.NotificationOriginAdmin,
		CreatedBy: lo.ToPtr(adminID),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// SystemTx inserts a system notification inside tx. Call Deliver after commit for the e-mail copy.
func (s *Service) SystemTx(ctx context.Context, tx *gorm.DB, userID, title, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:      tool.GenerateUUIDV7(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Origin:  types.NotificationOriginSystem,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to create system notification: %w", err)
	}
	return n, nil
}

// SentSinceTx reports whether the user got a notification with title after since.
func (s *Service) SentSinceTx(ctx context.Context, tx *gorm.DB, userID, title string, since time.Time) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND title = ? AND created_at >= ?", userID, title, since).
		Count(&count).Error
	return count > 0, err
}

// Deliver e-mails copies of notes. Failures are logged, never returned.
func (s *Service) Deliver(ctx context.Context, notes ...*models.Notification) {
	notes = lo.Compact(notes)
	if len(notes) == 0 {
		return
	}
	log := logctx.FromCtx(ctx, s.log)
	ids := lo.Uniq(lo.Map(notes, func(n *models.Notification, _ int) string { return n.UserID }))
	var profiles []*models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		log.Errorw("failed to load recipients", "error", err)
		return
	}
	emails := lo.SliceToMap(profiles, func(p *models.Profile) (string, string) { return p.ID, p.Email })
	for _, n := range notes {
		to := emails[n.UserID]
		if to == "" {
			continue
		}
		if err := s.sender.Send(ctx, mail.Message{To: to, Subject: n.Title, Text: n.Message, Tag: string(n.Origin)}); err != nil {
			log.Warnw("failed to e-mail notification", "notification_id", n.ID, "error", err)
		}
	}
}

type ListResult struct {
	Items  []*models.Notification `json:"items"`
	Unread int64                  `json:"unread"`
}

// ListForUser returns the user's feed, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) (*ListResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var res ListResult
	if err := q.Order("created_at desc").Limit(limit).Find(&res.Items).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).Count(&res.Unread).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkRead flags one notification, or all of them when id is empty.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false)
	if id != "" {
		q = q.Where("id = ?", id)
	}
	res := q.Update("read", true)
	return res.RowsAffected, res.Error
}

// DeleteByRecipient removes an individually sent admin notification.
func (s *Service) DeleteByRecipient(ctx context.Context, userID, id string) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !n.DeletableByRecipient() {
		return ErrNotDeletable
	}
	return s.db.WithContext(ctx).Delete(&n).Error
}

type ClearFilter struct {
	UserID   string `json:"user_id"`
	MassOnly bool   `json:"mass_only"`
}

// Clear is the admin bulk delete. An empty filter clears every notification.
func (s *Service) Clear(ctx context.Context, f ClearFilter) (int64, error) {
	q := s.db.WithContext(ctx).Where("1 = 1")
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.MassOnly {
		q = q.Where("is_mass = ?", true)
	}
	res := q.Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", res.Error)
	}
	logctx.FromCtx(ctx, s.log).Infow("notifications cleared", "user_id", f.UserID, "mass_only", f.MassOnly, "rows", res.RowsAffected)
	return res.RowsAffected, nil
}
