package automation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akozyrev/marketlink/internal/types"
)

func TestNormalizeRussianPhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"89123456789", "+79123456789"},
		{"8 (912) 345-67-89", "+79123456789"},
		{"79123456789", "+79123456789"},
		{"+79123456789", "+79123456789"},
		{"  89123456789  ", "+79123456789"},
		{"1234", "1234"}, // too short to be a Russian mobile, left as-is
	}
	for _, c := range cases {
		require.Equal(t, c.want, normalizeRussianPhone(c.in), "input %q", c.in)
	}
}

func TestNormalizeOzonIdentifier(t *testing.T) {
	require.Equal(t, "user@example.com", normalizeOzonIdentifier(" User@Example.com "))
	require.Equal(t, "+79123456789", normalizeOzonIdentifier("8 912 345 67 89"))
}

func TestProfileFor(t *testing.T) {
	for _, m := range []types.Marketplace{types.Wildberries, types.Ozon} {
		prof, err := profileFor(m)
		require.NoError(t, err)
		require.Equal(t, m, prof.marketplace)
		require.NotEmpty(t, prof.loginURLs)
		require.NotEmpty(t, prof.identifierInputs)
		require.NotEmpty(t, prof.codeInputs)
		require.NotEmpty(t, prof.captchaMarkers)
		require.NotEmpty(t, prof.authCookieNames)
		require.NotEmpty(t, prof.addToCartButtons)
	}

	_, err := profileFor(types.Marketplace("avito"))
	require.Error(t, err)
}
