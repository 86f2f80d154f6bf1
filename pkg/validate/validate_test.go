package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Country  string `json:"countryCode" validate:"omitempty,len=3"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&sample{Email: "nope", Country: "ZA"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be greater than 0", details["quantity"])
	require.Equal(t, "must have length 3", details["countryCode"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(&sample{Email: "a@b.co", Quantity: 1, Country: "ZAF"}))
}
