package service

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/payment"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// CashPaymentService implements the dual-control cash payment workflow:
// one actor records a collected payment as pending, a second actor verifies
// or rejects it, and verification activates the linked subscription. Records
// are append-only and decided exactly once.
type CashPaymentService interface {
	RecordCashPayment(ctx context.Context, req *dto.RecordCashPaymentRequest) (*dto.CashPaymentResponse, error)
	VerifyCashPayment(ctx context.Context, id string, req *dto.VerifyCashPaymentRequest) (*dto.CashPaymentResponse, error)
	GetCashPaymentSummary(ctx context.Context, start, end time.Time) (*dto.CashPaymentSummaryResponse, error)
	ListCashPayments(ctx context.Context, filter *types.CashPaymentFilter) (*dto.ListCashPaymentsResponse, error)
}

type cashPaymentService struct {
	ServiceParams
	trialService TrialService
}

func NewCashPaymentService(params ServiceParams, trialService TrialService) CashPaymentService {
	return &cashPaymentService{
		ServiceParams: params,
		trialService:  trialService,
	}
}

func (s *cashPaymentService) RecordCashPayment(ctx context.Context, req *dto.RecordCashPaymentRequest) (*dto.CashPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SelfVerify && !s.Config.Billing.AllowSelfVerify {
		return nil, ierr.NewError("self verification disabled").
			WithHint("Payments must be verified by a second person").
			Mark(ierr.ErrPermissionDenied)
	}

	// The linked subscription must exist before any money enters the ledger.
	if _, err := s.SubRepo.Get(ctx, req.SubscriptionID); err != nil {
		return nil, err
	}

	p := req.ToCashPayment(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionPaymentRecorded, types.AuditResourceCashPayment, p.ID,
	).WithMetadata(types.Metadata{
		"subscription_id": p.SubscriptionID,
		"amount":          p.Amount.String(),
		"currency":        p.Currency,
		"receipt_number":  p.ReceiptNumber,
	}))

	s.Logger.Infow("recorded cash payment",
		"payment_id", p.ID,
		"subscription_id", p.SubscriptionID,
		"amount", p.Amount,
		"receipt_number", p.ReceiptNumber)

	if req.SelfVerify {
		// The lower-trust shortcut: collector verifies their own record in
		// the same call. The decision path flags it for audit.
		if err := s.decide(ctx, p, types.PaymentDecisionVerified, ""); err != nil {
			return nil, err
		}
	}

	return dto.NewCashPaymentResponse(p), nil
}

func (s *cashPaymentService) VerifyCashPayment(ctx context.Context, id string, req *dto.VerifyCashPaymentRequest) (*dto.CashPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.PaymentStatus.IsDecided() {
		return nil, ierr.NewError("payment already decided").
			WithHintf("Payment %s is already %s and cannot be decided again", p.ID, p.PaymentStatus).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.decide(ctx, p, req.Decision, req.Notes); err != nil {
		return nil, err
	}
	return dto.NewCashPaymentResponse(p), nil
}

// decide applies a terminal decision to a pending record. The conditional
// store update is the single gate against double-deciding; on verified, the
// decision and the subscription activation commit together.
func (s *cashPaymentService) decide(ctx context.Context, p *payment.CashPayment, decision types.PaymentDecision, notes string) error {
	now := time.Now().UTC()
	verifier := types.GetUserID(ctx)
	p.VerifiedBy = &verifier
	p.VerifiedAt = &now
	if notes != "" {
		p.Notes = notes
	}

	switch decision {
	case types.PaymentDecisionVerified:
		p.PaymentStatus = types.CashPaymentStatusVerified
	case types.PaymentDecisionRejected:
		p.PaymentStatus = types.CashPaymentStatusRejected
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.PaymentRepo.UpdateDecision(ctx, p); err != nil {
			return err
		}
		if decision != types.PaymentDecisionVerified {
			return nil
		}

		sub, err := s.SubRepo.Get(ctx, p.SubscriptionID)
		if err != nil {
			return err
		}
		return s.trialService.ActivateFromPayment(ctx, sub)
	})
	if err != nil {
		p.PaymentStatus = types.CashPaymentStatusPending
		p.VerifiedBy = nil
		p.VerifiedAt = nil
		return err
	}

	action := types.AuditActionPaymentVerified
	if decision == types.PaymentDecisionRejected {
		action = types.AuditActionPaymentRejected
	}
	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, action, types.AuditResourceCashPayment, p.ID,
	).WithMetadata(types.Metadata{
		"subscription_id": p.SubscriptionID,
		"collected_by":    p.CollectedBy,
		"verified_by":     verifier,
	}))

	if p.IsSelfVerified() {
		s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
			ctx, types.AuditActionPaymentSelfVerified, types.AuditResourceCashPayment, p.ID,
		).WithStatus(types.AuditStatusWarning).WithMetadata(types.Metadata{
			"actor": p.CollectedBy,
		}))
		s.Logger.Warnw("cash payment self-verified",
			"payment_id", p.ID,
			"actor", p.CollectedBy)
	}

	s.Logger.Infow("cash payment decided",
		"payment_id", p.ID,
		"decision", decision,
		"verified_by", verifier)
	return nil
}

func (s *cashPaymentService) GetCashPaymentSummary(ctx context.Context, start, end time.Time) (*dto.CashPaymentSummaryResponse, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.After(end) {
		return nil, ierr.NewError("invalid date range").
			WithHint("Start date must be before end date").
			Mark(ierr.ErrValidation)
	}

	summary, err := s.PaymentRepo.GetSummary(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return dto.NewCashPaymentSummaryResponse(summary), nil
}

func (s *cashPaymentService) ListCashPayments(ctx context.Context, filter *types.CashPaymentFilter) (*dto.ListCashPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewCashPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CashPaymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, dto.NewCashPaymentResponse(p))
	}
	return &dto.ListCashPaymentsResponse{Items: items, Total: count}, nil
}
