package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// Directory maps a role and cost center to an approver address.
type Directory interface {
	GetCostCenterKey(ctx context.Context, po string) (string, error)
	ResolveApproverEmail(ctx context.Context, role, costCenter string) (string, bool, error)
}

// DirectoryNotifier resolves the approver of a stage and hands the message
// to a Sender.
type DirectoryNotifier struct {
	dir    Directory
	sender Sender
}

func NewDirectoryNotifier(dir Directory, sender Sender) *DirectoryNotifier {
	return &DirectoryNotifier{dir: dir, sender: sender}
}

// NotifyStageReady resolves the PO's cost center, then the approver for role
// (cost-center mapping first, global second). Every failure is logged.
func (n *DirectoryNotifier) NotifyStageReady(ctx context.Context, po string, seq int, role string) {
	log := logger.With(zap.String("po_number", po), zap.Int("sequence", seq), zap.String("role_code", role))

	costCenter, err := n.dir.GetCostCenterKey(ctx, po)
	if err != nil {
		log.Warn("cost center lookup failed, using global mapping", zap.Error(err))
		costCenter = ""
	}

	email, ok, err := n.dir.ResolveApproverEmail(ctx, role, costCenter)
	if err != nil {
		log.Error("approver lookup failed", zap.Error(err))
		return
	}
	if !ok {
		log.Warn("no active approver mapped for role", zap.String("cost_center", costCenter))
		return
	}

	msg := Message{
		Recipient: email,
		PoNumber:  po,
		Sequence:  seq,
		RoleCode:  role,
		Subject:   fmt.Sprintf("PO %s is waiting for your approval (%s)", po, role),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		log.Error("approver notification failed", zap.String("recipient", email), zap.Error(err))
	}
}

var _ Notifier = (*DirectoryNotifier)(nil)
