package cli

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github-repo-analyzer/internal/errors"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "longer...", truncate("longer title", 9))

	// Multi-byte titles must be cut on rune boundaries, never mid-rune.
	got := truncate("höhenverstellbarer Schreibtisch für alle", 10)
	assert.Equal(t, "höhenve...", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate("日本語のタイトルをとても長くしたもの", 8)
	assert.True(t, utf8.ValidString(got))
}

func TestSplitRepoArg(t *testing.T) {
	owner, name, err := splitRepoArg("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)

	for _, arg := range []string{"acme", "acme/", "/widgets", "acme/widgets/extra", ""} {
		_, _, err := splitRepoArg(arg)
		var invalid *apperrors.InvalidRepoFormatError
		assert.ErrorAs(t, err, &invalid, arg)
	}
}
