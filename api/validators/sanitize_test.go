package validators

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeStringTrims(t *testing.T) {
	require.Equal(t, "Snacks", SanitizeString("  Snacks \n", 120))
	require.Equal(t, "", SanitizeString("   ", 120))
}

func TestSanitizeStringCountsCharacters(t *testing.T) {
	name := "a" + strings.Repeat("é", 100) + "X"

	got := SanitizeString(name, 120)
	require.Equal(t, name, got)
	require.True(t, utf8.ValidString(got))
}

func TestSanitizeStringCutsOnRuneBoundary(t *testing.T) {
	got := SanitizeString(strings.Repeat("é", 10), 3)

	require.Equal(t, "ééé", got)
	require.True(t, utf8.ValidString(got))
}
