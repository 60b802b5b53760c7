package purchase

import (
	"context"

	notificationlog "github.com/ptamhub/billing/internal/app/service/notification_log"
	"github.com/ptamhub/billing/internal/platform/gateway"
	types "github.com/ptamhub/billing/pkg/types"
)

// CheckPayment asks the gateway that created a purchase about its payment and approves it
// when paid. Only the owner may poll; settled rows are answered without a gateway call.
func (s *Service) CheckPayment(ctx context.Context, userID string, kind Kind, purchaseID string) (*Outcome, error) {
	row, err := s.findByID(ctx, s.db, kind, purchaseID)
	if err != nil {
		return nil, err
	}
	if row.userID() != userID {
		return nil, ErrPurchaseNotFound
	}
	if row.status() != types.PaymentStatusPending {
		return row.outcome(), nil
	}
	g, err := s.gateways.ByName(row.gatewayName())
	if err != nil {
		return nil, err
	}

	entry := notificationlog.Entry{
		Provider:  row.gatewayName(),
		Source:    notificationlog.SourcePoll,
		Event:     "check_" + string(row.kind),
		UserID:    userID,
		PaymentID: row.paymentID(),
		Data:      map[string]any{"kind": row.kind, "purchase_id": row.id()},
	}
	s.audit.Received(ctx, entry)

	detail, err := s.checkGateway(ctx, g, row)
	if err != nil {
		s.audit.Finished(ctx, entry, nil, err)
		return nil, err
	}
	if detail.Status != gateway.StatusApproved {
		s.audit.Finished(ctx, entry, detail, nil)
		out := row.outcome()
		out.ProviderStatus = detail.ProviderStatus
		return out, nil
	}
	out, err := s.approve(ctx, row, detail)
	s.audit.Finished(ctx, entry, out, err)
	return out, err
}
