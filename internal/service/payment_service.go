package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-core/internal/repository"
	"github.com/ignatzorin/freelance-core/internal/validation"
)

// PaymentRepository описывает платёжный слой хранилища.
type PaymentRepository interface {
	FundEscrow(ctx context.Context, contractID, clientID uuid.UUID, amount decimal.Decimal) (*models.Escrow, error)
	ReleaseEscrow(ctx context.Context, in repository.ReleaseInput) (*models.Payment, *models.Escrow, error)
	RefundFromEscrow(ctx context.Context, escrowID uuid.UUID, amount decimal.Decimal, reason string) (*models.Payment, *models.Escrow, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID, txHash string) (*models.Payment, error)
	RefundPayment(ctx context.Context, paymentID, requestedBy uuid.UUID, amount decimal.Decimal, reason string) (*models.Refund, error)
	GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	GetEscrowByContract(ctx context.Context, contractID uuid.UUID) (*models.Escrow, error)
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPaymentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.Payment, error)
	ContractTotals(ctx context.Context, contractID uuid.UUID) (*models.ContractPaymentTotal, error)
}

// PaymentContractRepository — минимальный контракт для чтения контрактов.
type PaymentContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// PaymentService — операции с escrow и платёжной книгой.
type PaymentService struct {
	repo      PaymentRepository
	contracts PaymentContractRepository
	notifier  Notifier
	feeRate   decimal.Decimal
}

// NewPaymentService создаёт платёжный сервис.
func NewPaymentService(repo PaymentRepository, contracts PaymentContractRepository, notifier Notifier, feeRate decimal.Decimal) *PaymentService {
	return &PaymentService{
		repo:      repo,
		contracts: contracts,
		notifier:  notifier,
		feeRate:   feeRate,
	}
}

// FundEscrow пополняет escrow контракта клиентом.
func (s *PaymentService) FundEscrow(ctx context.Context, contractID, clientID uuid.UUID, amount decimal.Decimal) (*models.Escrow, error) {
	if err := money.Validate(amount); err != nil {
		return nil, err
	}

	escrow, err := s.repo.FundEscrow(ctx, contractID, clientID, money.Round(amount))
	if err != nil {
		return nil, err
	}

	if contract, err := s.contracts.GetByID(ctx, contractID); err == nil {
		s.notifier.Notify(contract.FreelancerID, EventEscrowFunded, escrow)
	}
	return escrow, nil
}

// Release выплачивает часть escrow исполнителю без привязки к этапу.
func (s *PaymentService) Release(ctx context.Context, escrowID, clientID uuid.UUID, amount decimal.Decimal, reason string) (*models.Payment, error) {
	if err := money.Validate(amount); err != nil {
		return nil, err
	}

	amount = money.Round(amount)
	payment, _, err := s.repo.ReleaseEscrow(ctx, repository.ReleaseInput{
		EscrowID: escrowID,
		ClientID: clientID,
		Amount:   amount,
		Fee:      money.PlatformFee(amount, s.feeRate),
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(payment.ToUserID, EventEscrowReleased, payment)
	return payment, nil
}

// Refund возвращает часть escrow клиенту. Доступно клиенту контракта
// и администратору; причина обязательна для аудита.
func (s *PaymentService) Refund(ctx context.Context, escrowID, userID uuid.UUID, role string, amount decimal.Decimal, reason string) (*models.Payment, error) {
	if err := money.Validate(amount); err != nil {
		return nil, err
	}
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	escrow, err := s.repo.GetEscrowByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, escrow.ContractID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		if err := authz.EnsureContractClient(contract, userID); err != nil {
			return nil, err
		}
	}

	payment, _, err := s.repo.RefundFromEscrow(ctx, escrowID, money.Round(amount), reason)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(contract.FreelancerID, EventEscrowRefunded, payment)
	return payment, nil
}

// Confirm подтверждает платёж внешним идентификатором транзакции.
// Доступно клиенту контракта и администратору. Повторное
// подтверждение — no-op.
func (s *PaymentService) Confirm(ctx context.Context, paymentID, userID uuid.UUID, role, txHash string) (*models.Payment, error) {
	if txHash == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "идентификатор транзакции обязателен")
	}

	if role != models.RoleAdmin {
		payment, err := s.repo.GetPaymentByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if payment.ContractID == nil {
			return nil, apperror.New(apperror.ErrCodeForbidden, "недостаточно прав для операции")
		}
		contract, err := s.contracts.GetByID(ctx, *payment.ContractID)
		if err != nil {
			return nil, err
		}
		if err := authz.EnsureContractClient(contract, userID); err != nil {
			return nil, err
		}
	}

	return s.repo.ConfirmPayment(ctx, paymentID, txHash)
}

// RefundPayment оформляет возврат по завершённому платежу. Только админ.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID, adminID uuid.UUID, role string, amount decimal.Decimal, reason string) (*models.Refund, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	if err := money.Validate(amount); err != nil {
		return nil, err
	}
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	refund, err := s.repo.RefundPayment(ctx, paymentID, adminID, money.Round(amount), reason)
	if err != nil {
		return nil, err
	}

	if payment, err := s.repo.GetPaymentByID(ctx, paymentID); err == nil {
		s.notifier.Notify(payment.ToUserID, EventPaymentRefunded, refund)
	}
	return refund, nil
}

// GetEscrowByContract возвращает escrow контракта. Доступно сторонам и админу.
func (s *PaymentService) GetEscrowByContract(ctx context.Context, contractID, userID uuid.UUID, role string) (*models.Escrow, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return s.repo.GetEscrowByContract(ctx, contractID)
}

// ListByContract возвращает платёжную книгу контракта. Доступно сторонам и админу.
func (s *PaymentService) ListByContract(ctx context.Context, contractID, userID uuid.UUID, role string) ([]models.Payment, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentsByContract(ctx, contractID)
}

// Totals возвращает агрегаты платёжной книги контракта.
func (s *PaymentService) Totals(ctx context.Context, contractID, userID uuid.UUID, role string) (*models.ContractPaymentTotal, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return s.repo.ContractTotals(ctx, contractID)
}
