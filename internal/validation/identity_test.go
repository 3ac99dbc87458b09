package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword_Accepts(t *testing.T) {
	t.Parallel()
	for _, pw := range []string{
		"Agora$eedPass1",
		"Abcdefghij1!",                        // minimum length
		"A" + strings.Repeat("b", 125) + "1!", // maximum length
		"ÅngströmPässwort9+",                  // non-ASCII letters count as cased
	} {
		assert.NoError(t, ValidatePassword(pw), pw)
	}
}

func TestValidatePassword_ReportsEveryMissingClass(t *testing.T) {
	t.Parallel()

	err := ValidatePassword("alllowercaseletters")
	require.Error(t, err)
	assert.Equal(t, "password must contain an uppercase letter, a digit, a special character", err.Error())

	err = ValidatePassword("NoSymbolsHere123")
	require.Error(t, err)
	assert.Equal(t, "password must contain a special character", err.Error())
}

func TestValidatePassword_Length(t *testing.T) {
	t.Parallel()

	err := ValidatePassword("Sh0rt!pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 12")

	err = ValidatePassword("A" + strings.Repeat("b", 126) + "1!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 128")

	// Length counts runes, not bytes.
	assert.NoError(t, ValidatePassword("Üüüüüüüüüü1!"))
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"ada":                   true,
		"grace_hopper-1906":     true,
		strings.Repeat("x", 50): true,
		strings.Repeat("x", 51): false,
		"ab":                    false,
		"_leading":              false,
		"trailing-":             false,
		"has space":             false,
		"at@sign":               false,
		"":                      false,
	}
	for name, ok := range tests {
		err := ValidateUsername(name)
		if ok {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateEmail("ada@agora.example"))
	assert.NoError(t, ValidateEmail("first.last+tag@sub.agora.example"))

	// 64 local + @ + 185 + ".com" is exactly 254.
	assert.NoError(t, ValidateEmail(strings.Repeat("a", 64)+"@"+strings.Repeat("b", 185)+".com"))

	err := ValidateEmail(strings.Repeat("a", 65) + "@agora.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local part")

	err = ValidateEmail(strings.Repeat("a", 64) + "@" + strings.Repeat("b", 186) + ".com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 254")

	for _, bad := range []string{"not-an-email", "ada@", "ada@@agora.example", "ada @agora.example", "ada@agora.example."} {
		assert.EqualError(t, ValidateEmail(bad), "invalid email format", bad)
	}
}
