// Package notification tells approvers that a stage is ready for them.
//
// Delivery (email) is not done here. The trigger point matters: a stage is
// announced only after the transaction that made it pending has committed,
// and a notification failure never fails the business operation.
//
// Import Path: github.com/ppockey/po-approvals/internal/notification
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// Notifier announces the first pending stage of a chain. It is
// fire-and-forget: implementations log failures instead of returning them.
type Notifier interface {
	NotifyStageReady(ctx context.Context, po string, seq int, role string)
}

// Message is one approver notification ready to be delivered.
type Message struct {
	Recipient string
	PoNumber  string
	Sequence  int
	RoleCode  string
	Subject   string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs what would be sent.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return fmt.Errorf("notification invalid: %w", err)
	}
	logger.Info("would notify approver",
		zap.String("recipient", msg.Recipient),
		zap.String("po_number", msg.PoNumber),
		zap.Int("sequence", msg.Sequence),
		zap.String("role_code", msg.RoleCode),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// LogNotifier logs the stage without resolving a recipient.
type LogNotifier struct{}

func (LogNotifier) NotifyStageReady(_ context.Context, po string, seq int, role string) {
	logger.Info("stage ready for approval",
		zap.String("po_number", po),
		zap.Int("sequence", seq),
		zap.String("role_code", role),
	)
}

func validate(m Message) error {
	if m.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if m.PoNumber == "" {
		return fmt.Errorf("po number is required")
	}
	return nil
}

var (
	_ Sender   = LogSender{}
	_ Notifier = LogNotifier{}
)
