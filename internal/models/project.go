package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project описывает проект клиента, на который фрилансеры подают предложения.
type Project struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	ClientID    uuid.UUID        `db:"client_id" json:"client_id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Budget      *decimal.Decimal `db:"budget" json:"budget,omitempty"`
	Status      ProjectStatus    `db:"status" json:"status"`
	DeadlineAt  *time.Time       `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Proposal представляет отклик фрилансера на проект.
type Proposal struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ProjectID    uuid.UUID       `db:"project_id" json:"project_id"`
	FreelancerID uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter  string          `db:"cover_letter" json:"cover_letter"`
	BidAmount    decimal.Decimal `db:"bid_amount" json:"bid_amount"`
	Status       ProposalStatus  `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
