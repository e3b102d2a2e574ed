package models

import "github.com/ignatzorin/freelance-core/internal/pkg/apperror"

// Роли пользователей платформы.
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// Статусы всех сущностей — закрытые типы с центральной таблицей переходов.
// Проверки вида `if status != X` по коду не разбросаны: каждый сервис
// спрашивает CanTransitionTo перед изменением.

type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusOpen:       {ProjectStatusInProgress, ProjectStatusCancelled, ProjectStatusOnHold},
	ProjectStatusInProgress: {ProjectStatusCompleted, ProjectStatusCancelled, ProjectStatusOnHold},
	ProjectStatusOnHold:     {ProjectStatusOpen, ProjectStatusInProgress, ProjectStatusCancelled},
	ProjectStatusCompleted:  {},
	ProjectStatusCancelled:  {},
}

func (s ProjectStatus) IsValid() bool {
	_, ok := projectTransitions[s]
	return ok
}

func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return containsStatus(projectTransitions[s], next)
}

type ProposalStatus string

const (
	ProposalStatusSubmitted ProposalStatus = "submitted"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusWithdrawn ProposalStatus = "withdrawn"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusSubmitted: {ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusWithdrawn},
	ProposalStatusAccepted:  {},
	ProposalStatusRejected:  {},
	ProposalStatusWithdrawn: {},
}

func (s ProposalStatus) IsValid() bool {
	_, ok := proposalTransitions[s]
	return ok
}

func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	return containsStatus(proposalTransitions[s], next)
}

type ContractType string

const (
	ContractTypeFixed    ContractType = "fixed"
	ContractTypeHourly   ContractType = "hourly"
	ContractTypeRetainer ContractType = "retainer"
)

func (t ContractType) IsValid() bool {
	switch t {
	case ContractTypeFixed, ContractTypeHourly, ContractTypeRetainer:
		return true
	}
	return false
}

type ContractStatus string

const (
	ContractStatusPending    ContractStatus = "pending"
	ContractStatusActive     ContractStatus = "active"
	ContractStatusCompleted  ContractStatus = "completed"
	ContractStatusCancelled  ContractStatus = "cancelled"
	ContractStatusDisputed   ContractStatus = "disputed"
	ContractStatusTerminated ContractStatus = "terminated"
	ContractStatusRefunded   ContractStatus = "refunded"
)

// Из терминальных статусов (completed, cancelled, refunded) выхода нет.
var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusPending:    {ContractStatusActive, ContractStatusCancelled},
	ContractStatusActive:     {ContractStatusCompleted, ContractStatusCancelled, ContractStatusTerminated, ContractStatusDisputed},
	ContractStatusDisputed:   {ContractStatusActive, ContractStatusRefunded, ContractStatusTerminated},
	ContractStatusCompleted:  {},
	ContractStatusCancelled:  {},
	ContractStatusTerminated: {},
	ContractStatusRefunded:   {},
}

func (s ContractStatus) IsValid() bool {
	_, ok := contractTransitions[s]
	return ok
}

func (s ContractStatus) CanTransitionTo(next ContractStatus) bool {
	return containsStatus(contractTransitions[s], next)
}

// IsTerminal сообщает, что дальнейшие переходы по контракту невозможны.
func (s ContractStatus) IsTerminal() bool {
	return len(contractTransitions[s]) == 0 && s.IsValid()
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted  MilestoneStatus = "submitted"
	MilestoneStatusApproved   MilestoneStatus = "approved"
	MilestoneStatusRejected   MilestoneStatus = "rejected"
	MilestoneStatusPaid       MilestoneStatus = "paid"
)

// Отклонённый этап возвращается в in_progress: исполнитель дорабатывает
// и отправляет повторно.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:    {MilestoneStatusInProgress, MilestoneStatusSubmitted},
	MilestoneStatusInProgress: {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:  {MilestoneStatusApproved, MilestoneStatusRejected, MilestoneStatusInProgress},
	MilestoneStatusApproved:   {MilestoneStatusPaid},
	MilestoneStatusRejected:   {MilestoneStatusInProgress},
	MilestoneStatusPaid:       {},
}

func (s MilestoneStatus) IsValid() bool {
	_, ok := milestoneTransitions[s]
	return ok
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	return containsStatus(milestoneTransitions[s], next)
}

type TimeEntryStatus string

const (
	TimeEntryStatusDraft     TimeEntryStatus = "draft"
	TimeEntryStatusSubmitted TimeEntryStatus = "submitted"
	TimeEntryStatusApproved  TimeEntryStatus = "approved"
	TimeEntryStatusRejected  TimeEntryStatus = "rejected"
	TimeEntryStatusInvoiced  TimeEntryStatus = "invoiced"
)

// rejected -> draft разрешён только через явный сброс владельцем записи.
var timeEntryTransitions = map[TimeEntryStatus][]TimeEntryStatus{
	TimeEntryStatusDraft:     {TimeEntryStatusSubmitted},
	TimeEntryStatusSubmitted: {TimeEntryStatusApproved, TimeEntryStatusRejected},
	TimeEntryStatusApproved:  {TimeEntryStatusInvoiced},
	TimeEntryStatusRejected:  {TimeEntryStatusDraft},
	TimeEntryStatusInvoiced:  {},
}

func (s TimeEntryStatus) IsValid() bool {
	_, ok := timeEntryTransitions[s]
	return ok
}

func (s TimeEntryStatus) CanTransitionTo(next TimeEntryStatus) bool {
	return containsStatus(timeEntryTransitions[s], next)
}

type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusActive   EscrowStatus = "active"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
	EscrowStatusExpired  EscrowStatus = "expired"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:  {EscrowStatusActive, EscrowStatusExpired},
	EscrowStatusActive:   {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
	EscrowStatusExpired:  {},
}

func (s EscrowStatus) IsValid() bool {
	_, ok := escrowTransitions[s]
	return ok
}

func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	return containsStatus(escrowTransitions[s], next)
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// Завершённый платёж неизменяем, единственный допустимый переход — refunded.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
	PaymentStatusCancelled:  {},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return containsStatus(paymentTransitions[s], next)
}

type InvoiceStatus string

const (
	InvoiceStatusDue       InvoiceStatus = "due"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDue:       {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:   {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {},
}

func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	return containsStatus(invoiceTransitions[s], next)
}

type DisputeStatus string

const (
	DisputeStatusOpen      DisputeStatus = "open"
	DisputeStatusInReview  DisputeStatus = "in_review"
	DisputeStatusResolved  DisputeStatus = "resolved"
	DisputeStatusClosed    DisputeStatus = "closed"
	DisputeStatusEscalated DisputeStatus = "escalated"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:      {DisputeStatusInReview, DisputeStatusClosed},
	DisputeStatusInReview:  {DisputeStatusResolved, DisputeStatusClosed, DisputeStatusEscalated},
	DisputeStatusEscalated: {DisputeStatusResolved, DisputeStatusClosed},
	DisputeStatusResolved:  {},
	DisputeStatusClosed:    {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	return containsStatus(disputeTransitions[s], next)
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusApproved  RefundStatus = "approved"
	RefundStatusRejected  RefundStatus = "rejected"
	RefundStatusProcessed RefundStatus = "processed"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:   {RefundStatusApproved, RefundStatusRejected},
	RefundStatusApproved:  {RefundStatusProcessed},
	RefundStatusRejected:  {},
	RefundStatusProcessed: {},
}

func (s RefundStatus) IsValid() bool {
	_, ok := refundTransitions[s]
	return ok
}

func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	return containsStatus(refundTransitions[s], next)
}

func containsStatus[T comparable](allowed []T, status T) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// NewContractType валидирует тип контракта из запроса.
func NewContractType(raw string) (ContractType, error) {
	t := ContractType(raw)
	if !t.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип контракта")
	}
	return t, nil
}

// NewInvoiceStatus валидирует статус счёта из запроса.
func NewInvoiceStatus(raw string) (InvoiceStatus, error) {
	s := InvoiceStatus(raw)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус счёта")
	}
	return s, nil
}
