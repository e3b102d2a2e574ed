package authz

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

// Проверки полномочий для операций ядра. Каждая операция сервиса объявляет
// требуемую роль/сторону одним вызовом отсюда, вместо разрозненных сравнений
// идентификаторов в каждом хэндлере.

// EnsureProjectOwner разрешает операцию только клиенту-владельцу проекта.
func EnsureProjectOwner(project *models.Project, userID uuid.UUID) error {
	if project.ClientID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только владельцу проекта")
	}
	return nil
}

// EnsureContractClient разрешает операцию только клиенту контракта.
func EnsureContractClient(contract *models.Contract, userID uuid.UUID) error {
	if contract.ClientID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только клиенту контракта")
	}
	return nil
}

// EnsureContractFreelancer разрешает операцию только исполнителю контракта.
func EnsureContractFreelancer(contract *models.Contract, userID uuid.UUID) error {
	if contract.FreelancerID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только исполнителю контракта")
	}
	return nil
}

// EnsureContractParty разрешает операцию любой из сторон контракта.
func EnsureContractParty(contract *models.Contract, userID uuid.UUID) error {
	if contract.ClientID != userID && contract.FreelancerID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только сторонам контракта")
	}
	return nil
}

// EnsureContractPartyOrAdmin разрешает операцию сторонам контракта и админу.
func EnsureContractPartyOrAdmin(contract *models.Contract, userID uuid.UUID, role string) error {
	if role == models.RoleAdmin {
		return nil
	}
	return EnsureContractParty(contract, userID)
}

// EnsureAdmin разрешает операцию только администратору.
func EnsureAdmin(role string) error {
	if role != models.RoleAdmin {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только администратору")
	}
	return nil
}

// EnsureRole проверяет, что у пользователя требуемая роль.
func EnsureRole(user *models.User, role string) error {
	if user.Role != role {
		return apperror.New(apperror.ErrCodeForbidden, "недостаточно прав для операции")
	}
	return nil
}

// EnsureOwner проверяет владение произвольной записью (например записью времени).
func EnsureOwner(ownerID, userID uuid.UUID) error {
	if ownerID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только владельцу записи")
	}
	return nil
}

// EnsureContractNotFrozen запрещает переходы по работе и выплатам, пока
// контракт в споре или в терминальном статусе.
func EnsureContractNotFrozen(contract *models.Contract) error {
	if contract.Status == models.ContractStatusDisputed {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт заморожен открытым спором")
	}
	if contract.Status != models.ContractStatusActive {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт не активен")
	}
	return nil
}
