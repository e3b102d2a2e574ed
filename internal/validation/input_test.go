package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("название", "корректное название", 3, 200))
	assert.Error(t, ValidateLength("название", "ab", 3, 200))
	assert.Error(t, ValidateLength("название", strings.Repeat("я", 201), 3, 200))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("  User@Example.COM  "))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("no-at-sign"))
	assert.Error(t, ValidateEmail("user@nodot"))
	assert.Error(t, ValidateEmail("a@b@c.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword("short"))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason("работа не соответствует ТЗ"))
	assert.Error(t, ValidateReason("коротко"))
	assert.Error(t, ValidateReason("          "))
	assert.Error(t, ValidateReason(strings.Repeat("п", MaxReasonLength+1)))
}

func TestValidateBatch(t *testing.T) {
	assert.NoError(t, ValidateBatch(1))
	assert.NoError(t, ValidateBatch(MaxBatchSize))
	assert.Error(t, ValidateBatch(0))
	assert.Error(t, ValidateBatch(MaxBatchSize+1))
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, ValidateRole("client"))
	assert.NoError(t, ValidateRole("freelancer"))
	assert.NoError(t, ValidateRole(""))
	assert.Error(t, ValidateRole("admin"))
	assert.Error(t, ValidateRole("superuser"))
}
