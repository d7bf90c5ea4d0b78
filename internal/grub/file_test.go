package grub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `# If you change this file, run 'grub2-mkconfig -o /boot/grub2/grub.cfg'
GRUB_TIMEOUT=8
GRUB_DISTRIBUTOR=
GRUB_DEFAULT=saved

GRUB_CMDLINE_LINUX_DEFAULT="splash=silent quiet security=apparmor"
GRUB_TERMINAL='console'
`

func TestParseRoundTrip(t *testing.T) {
	f, err := Parse(sampleConfig)
	require.NoError(t, err)

	assert.Equal(t, sampleConfig, f.Serialize())
}

func TestParseRoundTripNoTrailingNewline(t *testing.T) {
	text := "GRUB_TIMEOUT=8\n# comment\nGRUB_DEFAULT=saved"

	f, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, text, f.Serialize())
}

func TestParseStripsQuotes(t *testing.T) {
	f, err := Parse(sampleConfig)
	require.NoError(t, err)

	value, ok := f.Get("GRUB_CMDLINE_LINUX_DEFAULT")
	require.True(t, ok)
	assert.Equal(t, "splash=silent quiet security=apparmor", value)

	value, ok = f.Get("GRUB_TERMINAL")
	require.True(t, ok)
	assert.Equal(t, "console", value)
}

func TestParseMissingSeparator(t *testing.T) {
	_, err := Parse("GRUB_TIMEOUT=8\nGRUB_DEFAULT\n")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
}

func TestSetValueSameValueIsNoOp(t *testing.T) {
	f, err := Parse(sampleConfig)
	require.NoError(t, err)

	f.SetValue("GRUB_TIMEOUT", "8")

	assert.False(t, f.KeyValues()["GRUB_TIMEOUT"].Dirty())
	assert.Equal(t, sampleConfig, f.Serialize())
}

func TestSetValueRewritesOnlyChangedLine(t *testing.T) {
	f, err := Parse(sampleConfig)
	require.NoError(t, err)

	f.SetValue("GRUB_TIMEOUT", "30")

	want := `# If you change this file, run 'grub2-mkconfig -o /boot/grub2/grub.cfg'
GRUB_TIMEOUT="30"
GRUB_DISTRIBUTOR=
GRUB_DEFAULT=saved

GRUB_CMDLINE_LINUX_DEFAULT="splash=silent quiet security=apparmor"
GRUB_TERMINAL='console'
`
	assert.Equal(t, want, f.Serialize())
	assert.True(t, f.KeyValues()["GRUB_TIMEOUT"].Dirty())
}

func TestSetValueAppendsNewKey(t *testing.T) {
	text := "GRUB_TIMEOUT=8\nGRUB_DEFAULT=saved"

	f, err := Parse(text)
	require.NoError(t, err)

	f.SetValue("GRUB_GFXMODE", "1024x768")

	assert.Equal(t, "GRUB_TIMEOUT=8\nGRUB_DEFAULT=saved\nGRUB_GFXMODE=\"1024x768\"", f.Serialize())
}

func TestLastOccurrenceWins(t *testing.T) {
	f, err := Parse("GRUB_TIMEOUT=8\nGRUB_TIMEOUT=15\n")
	require.NoError(t, err)

	value, ok := f.Get("GRUB_TIMEOUT")
	require.True(t, ok)
	assert.Equal(t, "15", value)
}

func TestSetValueThroughIndexUpdatesSequence(t *testing.T) {
	// the index and the line sequence must describe the same entry
	f, err := Parse("GRUB_TIMEOUT=8\nGRUB_TIMEOUT=15\n")
	require.NoError(t, err)

	f.SetValue("GRUB_TIMEOUT", "30")

	assert.Equal(t, "GRUB_TIMEOUT=8\nGRUB_TIMEOUT=\"30\"\n", f.Serialize())
	assert.Equal(t, "30", f.KeyValues()["GRUB_TIMEOUT"].Value)
}

func TestValuesKeepFileOrder(t *testing.T) {
	f, err := Parse(sampleConfig)
	require.NoError(t, err)

	var keys []string
	for _, entry := range f.Values() {
		keys = append(keys, entry.Key)
	}
	assert.Equal(t, []string{
		"GRUB_TIMEOUT",
		"GRUB_DISTRIBUTOR",
		"GRUB_DEFAULT",
		"GRUB_CMDLINE_LINUX_DEFAULT",
		"GRUB_TERMINAL",
	}, keys)
}
