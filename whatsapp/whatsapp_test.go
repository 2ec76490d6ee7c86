package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"0812-3456-7890":   "6281234567890",
		"+62 812 3456":     "628123456",
		"(021) 555 0101":   "62215550101",
		"6281234567890":    "6281234567890",
		"no digits at all": "",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestRender(t *testing.T) {
	got := Render("Hi {name}, open {link}. Bye {name}", "Siti Aminah", "https://x.test/?u=abc")
	assert.Equal(t, "Hi Siti Aminah, open https://x.test/?u=abc. Bye Siti Aminah", got)
}

func TestInviteLink(t *testing.T) {
	assert.Equal(t, "https://wedding.test/?u=abc", InviteLink("https://wedding.test/", "abc"))
	assert.Equal(t, "https://wedding.test/?u=abc", InviteLink("https://wedding.test", "abc"))
}

func TestDeepLink(t *testing.T) {
	link, err := DeepLink("0812 3456", "Halo Budi & keluarga\n{link}")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/628123456?text=Halo%20Budi%20%26%20keluarga%0A%7Blink%7D", link)

	_, err = DeepLink("  ", "text")
	assert.ErrorIs(t, err, ErrNoPhone)
}

func TestDefaultTemplateHasPlaceholders(t *testing.T) {
	assert.Contains(t, DefaultTemplate, "{name}")
	assert.Contains(t, DefaultTemplate, "{link}")
}
