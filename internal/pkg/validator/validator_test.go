package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Same  bool   `json:"same"`
	Other string `json:"other" validate:"required_if=Same false"`
}

func TestValidate_ReportsJSONNames(t *testing.T) {
	errs := Validate(&sample{Email: "nope", Same: false})
	assert.Equal(t, "required", errs["name"])
	assert.Equal(t, "email", errs["email"])
	assert.Equal(t, "required_if", errs["other"])
}

func TestValidate_Valid(t *testing.T) {
	assert.Nil(t, Validate(&sample{Name: "Anna", Same: true}))
}

func TestVar(t *testing.T) {
	assert.True(t, Var("", "omitempty,email"))
	assert.True(t, Var("a@b.de", "omitempty,email"))
	assert.False(t, Var("a@", "omitempty,email"))
}
