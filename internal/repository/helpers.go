package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation проверяет нарушение уникального ограничения PostgreSQL.
// Используется для маппинга гонок (двойной контракт, второй таймер,
// повторный возврат) в Conflict без предварительного SELECT.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
