package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

var validMethods = map[string]bool{
	MethodCash: true, MethodCard: true, MethodTransfer: true, MethodInsurance: true,
}

// Statuses a payment may be recorded with. Failed is only ever produced by
// a reject decision, never accepted at creation.
var validRecordStatuses = map[string]bool{
	StatusPending: true, StatusCompleted: true,
}

type Service struct {
	repo  Repository
	appts appointment.Repository
	tx    db.TxRunner

	now func() time.Time
}

func NewService(repo Repository, appts appointment.Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, appts: appts, tx: tx, now: time.Now}
}

// normalizeItems discards completely blank rows (form artifacts) and then
// validates every remaining item. Any malformed item rejects the whole set.
func normalizeItems(items []*PaymentItem) ([]*PaymentItem, error) {
	var kept []*PaymentItem
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" && item.Price.IsZero() {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return nil, invalidf("at least one line item is required")
	}
	for i, item := range kept {
		if strings.TrimSpace(item.Description) == "" {
			return nil, invalidf("item %d: description is required", i+1)
		}
		if item.Price.IsNegative() {
			return nil, invalidf("item %d: price cannot be negative", i+1)
		}
	}
	return kept, nil
}

func sumItems(items []*PaymentItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

// Record validates the line items, computes the total, generates a receipt
// number, and inserts the payment with its items in one transaction.
func (s *Service) Record(ctx context.Context, p *Payment, items []*PaymentItem) error {
	if p.PatientID == 0 {
		return invalidf("patient_id is required")
	}
	if p.Method == "" {
		p.Method = MethodCash
	}
	if !validMethods[p.Method] {
		return invalidf("invalid payment method: %s", p.Method)
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !validRecordStatuses[p.Status] {
		return invalidf("invalid payment status: %s", p.Status)
	}
	if p.AppointmentID != nil {
		if _, err := s.appts.GetByID(ctx, *p.AppointmentID); err != nil {
			return fmt.Errorf("linked appointment: %w", err)
		}
	}

	kept, err := normalizeItems(items)
	if err != nil {
		return err
	}
	p.TotalAmount = sumItems(kept)

	receipt, err := generateReceiptNo(s.now())
	if err != nil {
		return fmt.Errorf("generate receipt number: %w", err)
	}
	p.ReceiptNo = receipt

	return s.tx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := s.repo.InsertItems(txCtx, p.ID, kept); err != nil {
			return err
		}
		return nil
	})
}

// Decide applies an approve/reject decision. Approval completes the payment,
// rejection fails it. When the payment is linked to an appointment, the
// appointment's payment status is set to the caller-supplied value in the
// same transaction.
func (s *Service) Decide(ctx context.Context, paymentID int64, decision, apptPaymentStatus string, notes *string) (*Payment, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, invalidf("invalid decision: %s", decision)
	}

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	newStatus := StatusCompleted
	if decision == DecisionReject {
		newStatus = StatusFailed
	}

	if p.AppointmentID != nil {
		switch apptPaymentStatus {
		case appointment.PaymentUnpaid, appointment.PaymentPending, appointment.PaymentPaid:
		default:
			return nil, invalidf("invalid appointment payment status: %s", apptPaymentStatus)
		}
	}

	err = s.tx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateStatus(txCtx, paymentID, newStatus, notes); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		if p.AppointmentID != nil {
			if err := s.appts.UpdatePaymentStatus(txCtx, *p.AppointmentID, apptPaymentStatus); err != nil {
				return fmt.Errorf("update appointment payment status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, paymentID)
}

// UpdateItems replaces the full line-item set and recomputes the total in one
// transaction. The payment status is untouched.
func (s *Service) UpdateItems(ctx context.Context, paymentID int64, items []*PaymentItem) ([]*PaymentItem, error) {
	if _, err := s.repo.GetByID(ctx, paymentID); err != nil {
		return nil, err
	}

	kept, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}

	err = s.tx(ctx, func(txCtx context.Context) error {
		if err := s.repo.DeleteItems(txCtx, paymentID); err != nil {
			return fmt.Errorf("delete payment items: %w", err)
		}
		if err := s.repo.InsertItems(txCtx, paymentID, kept); err != nil {
			return err
		}
		if err := s.repo.UpdateTotal(txCtx, paymentID, sumItems(kept)); err != nil {
			return fmt.Errorf("update payment total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, []*PaymentItem, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, items, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error) {
	return s.repo.List(ctx, params, limit, offset)
}

// generateReceiptNo produces RCP-YYYYMMDD- followed by six uppercase hex
// characters.
func generateReceiptNo(at time.Time) (string, error) {
	var buf [3]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("RCP-%s-%s", at.Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf[:]))), nil
}
