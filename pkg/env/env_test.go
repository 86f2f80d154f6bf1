package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Setenv("GREENGATE_TEST_VALUE", "  json ")
	require.Equal(t, "json", Get("GREENGATE_TEST_VALUE", "text"))

	t.Setenv("GREENGATE_TEST_VALUE", "   ")
	require.Equal(t, "text", Get("GREENGATE_TEST_VALUE", "text"))

	require.Equal(t, "fallback", Get("GREENGATE_TEST_UNSET_VALUE", "fallback"))
}
