package sessioncode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.True(t, Valid(code), "generated code %q is not valid", code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"AB12CD":  true,
		"000000":  true,
		"ab12cd":  false,
		"AB12C":   false,
		"AB12CDE": false,
		"AB-2CD":  false,
		"":        false,
	}
	for code, want := range cases {
		assert.Equal(t, want, Valid(code), code)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AB12CD", Normalize("  ab12cd\n"))
}
