package money

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

// Денежные суммы во всей системе хранятся и передаются как decimal
// с двумя знаками после запятой. float64 для денег не используется.

var (
	Zero       = decimal.Zero
	MinutesPer = decimal.NewFromInt(60)
)

// Round приводит сумму к двум знакам после запятой.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Validate проверяет, что сумма положительная.
func Validate(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return nil
}

// ValidateNonNegative проверяет, что сумма не отрицательная.
func ValidateNonNegative(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return nil
}

// PlatformFee считает комиссию площадки от суммы по ставке (например 0.10).
func PlatformFee(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// FreelancerNet возвращает сумму к выплате исполнителю после комиссии.
func FreelancerNet(amount, fee decimal.Decimal) decimal.Decimal {
	return Round(amount.Sub(fee))
}

// HourlyAmount считает стоимость отработанного времени:
// duration_minutes / 60 * hourly_rate.
func HourlyAmount(durationMinutes int, hourlyRate decimal.Decimal) decimal.Decimal {
	minutes := decimal.NewFromInt(int64(durationMinutes))
	return Round(minutes.Div(MinutesPer).Mul(hourlyRate))
}
