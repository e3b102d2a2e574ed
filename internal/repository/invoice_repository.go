package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type InvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// GenerateFromTimeEntries — приёмка пакета записей времени клиентом.
// Одна транзакция: записи блокируются, проходят submitted -> approved,
// по принятым строкам создаётся счёт, записи закрываются статусом invoiced.
// Откат любой части откатывает всё: принятых записей без счёта не бывает.
func (r *InvoiceRepository) GenerateFromTimeEntries(ctx context.Context, entryIDs []uuid.UUID, clientID uuid.UUID) (*models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entries, err := lockEntriesTx(ctx, tx, entryIDs)
	if err != nil {
		return nil, err
	}

	contractID := entries[0].ContractID
	for i := range entries {
		if entries[i].ContractID != contractID {
			return nil, apperror.New(apperror.ErrCodeValidation, "записи относятся к разным контрактам")
		}
		if entries[i].Status != models.TimeEntryStatusSubmitted {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "запись не ожидает согласования")
		}
	}

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return nil, err
	}
	if err := authz.EnsureContractNotFrozen(contract); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE time_entries SET status = $2, updated_at = NOW() WHERE id = ANY($1)
	`, pq.Array(entryIDs), models.TimeEntryStatusApproved); err != nil {
		return nil, fmt.Errorf("invoice repository: approve entries %w", err)
	}

	subtotal := money.Zero
	for i := range entries {
		if entries[i].Billable {
			subtotal = subtotal.Add(entries[i].Amount)
		}
	}

	invoice, err := insertInvoiceTx(ctx, tx, &models.Invoice{
		ContractID: contract.ID,
		FromUserID: contract.FreelancerID,
		ToUserID:   contract.ClientID,
		Subtotal:   subtotal,
		Tax:        money.Zero,
		Total:      subtotal,
		Status:     models.InvoiceStatusDue,
	})
	if err != nil {
		return nil, err
	}

	for i := range entries {
		e := &entries[i]
		if !e.Billable {
			continue
		}
		item := models.InvoiceItem{
			InvoiceID:   invoice.ID,
			TimeEntryID: &e.ID,
			Description: entryItemDescription(e),
			Amount:      e.Amount,
		}
		if err := insertInvoiceItemTx(ctx, tx, &item); err != nil {
			return nil, err
		}
		invoice.Items = append(invoice.Items, item)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE time_entries SET status = $2, updated_at = NOW() WHERE id = ANY($1)
	`, pq.Array(entryIDs), models.TimeEntryStatusInvoiced); err != nil {
		return nil, fmt.Errorf("invoice repository: mark invoiced %w", err)
	}

	return invoice, tx.Commit()
}

// Create выставляет счёт по контракту вручную: исполнитель формирует
// строки сам, например по принятому этапу фиксированного контракта.
func (r *InvoiceRepository) Create(ctx context.Context, contractID, issuerID uuid.UUID, items []models.InvoiceItem, tax decimal.Decimal) (*models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractFreelancer(contract, issuerID); err != nil {
		return nil, err
	}
	if err := authz.EnsureContractNotFrozen(contract); err != nil {
		return nil, err
	}

	subtotal := money.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].Amount)
	}

	invoice, err := insertInvoiceTx(ctx, tx, &models.Invoice{
		ContractID: contract.ID,
		FromUserID: contract.FreelancerID,
		ToUserID:   contract.ClientID,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      money.Round(subtotal.Add(tax)),
		Status:     models.InvoiceStatusDue,
	})
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].InvoiceID = invoice.ID
		if err := insertInvoiceItemTx(ctx, tx, &items[i]); err != nil {
			return nil, err
		}
	}
	invoice.Items = items

	return invoice, tx.Commit()
}

// GetByID возвращает счёт со строками.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoice repository: get by id %w", err)
	}
	if err := r.db.SelectContext(ctx, &invoice.Items, `
		SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id
	`, id); err != nil {
		return nil, fmt.Errorf("invoice repository: get items %w", err)
	}
	return &invoice, nil
}

// ListByContract возвращает счета контракта без строк.
func (r *InvoiceRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	return invoices, err
}

// TransitionStatus переводит счёт в новый статус с проверкой таблицы переходов.
func (r *InvoiceRepository) TransitionStatus(ctx context.Context, id uuid.UUID, next models.InvoiceStatus) (*models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var invoice models.Invoice
	if err := tx.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoice repository: lock %w", err)
	}

	if !invoice.Status.CanTransitionTo(next) {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("переход счёта из %s в %s невозможен", invoice.Status, next))
	}

	if err := tx.GetContext(ctx, &invoice, `
		UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, next); err != nil {
		return nil, fmt.Errorf("invoice repository: transition %w", err)
	}

	return &invoice, tx.Commit()
}

// insertInvoiceTx присваивает номер из последовательности и пишет счёт.
// Формат номера: INV-{префикс контракта}-{порядковый номер}.
func insertInvoiceTx(ctx context.Context, tx *sqlx.Tx, inv *models.Invoice) (*models.Invoice, error) {
	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT nextval('invoice_number_seq')`); err != nil {
		return nil, fmt.Errorf("invoice repository: next number %w", err)
	}
	inv.Number = fmt.Sprintf("INV-%s-%06d", inv.ContractID.String()[:8], seq)

	if err := tx.GetContext(ctx, inv, `
		INSERT INTO invoices (number, contract_id, from_user_id, to_user_id, subtotal, tax, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, inv.Number, inv.ContractID, inv.FromUserID, inv.ToUserID, inv.Subtotal, inv.Tax, inv.Total, inv.Status); err != nil {
		return nil, fmt.Errorf("invoice repository: insert %w", err)
	}
	return inv, nil
}

func insertInvoiceItemTx(ctx context.Context, tx *sqlx.Tx, item *models.InvoiceItem) error {
	if err := tx.GetContext(ctx, item, `
		INSERT INTO invoice_items (invoice_id, time_entry_id, description, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, item.InvoiceID, item.TimeEntryID, item.Description, item.Amount); err != nil {
		return fmt.Errorf("invoice repository: insert item %w", err)
	}
	return nil
}

// entryItemDescription собирает строку счёта из записи времени.
func entryItemDescription(e *models.TimeEntry) string {
	if e.Description != nil && *e.Description != "" {
		return fmt.Sprintf("%s (%d мин)", *e.Description, e.DurationMinutes)
	}
	return fmt.Sprintf("Работа %s (%d мин)", e.StartTime.Format("02.01.2006"), e.DurationMinutes)
}
