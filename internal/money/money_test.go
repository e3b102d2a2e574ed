package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(10.57).Equal(Round(decimal.NewFromFloat(10.566))))
	assert.True(t, decimal.NewFromFloat(10.56).Equal(Round(decimal.NewFromFloat(10.564))))
	assert.True(t, decimal.NewFromInt(100).Equal(Round(decimal.NewFromInt(100))))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(decimal.NewFromFloat(0.01)))
	assert.Error(t, Validate(decimal.Zero))
	assert.Error(t, Validate(decimal.NewFromInt(-5)))
}

func TestValidateNonNegative(t *testing.T) {
	assert.NoError(t, ValidateNonNegative(decimal.Zero))
	assert.NoError(t, ValidateNonNegative(decimal.NewFromInt(10)))
	assert.Error(t, ValidateNonNegative(decimal.NewFromFloat(-0.01)))
}

func TestPlatformFee(t *testing.T) {
	fee := PlatformFee(decimal.NewFromInt(2000), decimal.NewFromFloat(0.10))
	assert.True(t, decimal.NewFromInt(200).Equal(fee), "ожидали 200, получили %s", fee)

	net := FreelancerNet(decimal.NewFromInt(2000), fee)
	assert.True(t, decimal.NewFromInt(1800).Equal(net), "ожидали 1800, получили %s", net)
}

func TestPlatformFeeRounding(t *testing.T) {
	// 333.33 * 0.10 = 33.333 -> 33.33
	fee := PlatformFee(decimal.NewFromFloat(333.33), decimal.NewFromFloat(0.10))
	assert.True(t, decimal.NewFromFloat(33.33).Equal(fee), "получили %s", fee)
}

func TestHourlyAmount(t *testing.T) {
	// 90 минут по 60/час = 90.
	amount := HourlyAmount(90, decimal.NewFromInt(60))
	assert.True(t, decimal.NewFromInt(90).Equal(amount), "получили %s", amount)

	// 25 минут по 100/час = 41.67.
	amount = HourlyAmount(25, decimal.NewFromInt(100))
	assert.True(t, decimal.NewFromFloat(41.67).Equal(amount), "получили %s", amount)

	amount = HourlyAmount(0, decimal.NewFromInt(100))
	assert.True(t, amount.IsZero())
}
