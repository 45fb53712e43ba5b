package utils_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forumly-api/internal/utils"
)

func TestNewValidatorUsesWireNames(t *testing.T) {
	type payload struct {
		DisplayName string `json:"display_name" validate:"required"`
		Limit       int    `query:"limit" validate:"max=5"`
	}

	err := utils.NewValidator().Struct(payload{Limit: 10})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field())
	}
	require.ElementsMatch(t, []string{"display_name", "limit"}, fields)
}
