package notification_log

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/db/dbtest"
	"github.com/ptamhub/billing/pkg/logctx"
)

func TestReceivedAndFinished(t *testing.T) {
	gdb := dbtest.New(t)
	s := New(gdb, zap.NewNop().Sugar())
	ctx := logctx.WithTraceID(context.Background(), "trace-1")

	e := Entry{Provider: "asaas", Source: SourceWebhook, Event: "PAYMENT_RECEIVED", PaymentID: "pay_1", Data: map[string]string{"event": "PAYMENT_RECEIVED"}}
	s.Received(ctx, e)
	s.Finished(ctx, e, "approved", nil)
	s.Finished(ctx, e, nil, errors.New("purchase not found"))

	rows, err := s.ListByPayment(ctx, "pay_1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, models.PaymentNotificationLogStatusReceived, rows[0].Status)
	require.Equal(t, models.PaymentNotificationLogStatusHandled, rows[1].Status)
	require.Equal(t, models.PaymentNotificationLogStatusHandleFailed, rows[2].Status)
	require.Equal(t, "trace-1", rows[0].TraceID)
	require.Nil(t, rows[0].UserID)
	require.Equal(t, "PAYMENT_RECEIVED", rows[1].Event)
	require.Equal(t, "asaas", rows[1].Provider)
	require.Contains(t, string(*rows[2].Result), "purchase not found")
}

func TestNilServiceIsNoop(t *testing.T) {
	var s *Service
	s.Received(context.Background(), Entry{})
}
