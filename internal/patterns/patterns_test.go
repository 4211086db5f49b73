package patterns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhonePattern(t *testing.T) {
	t.Parallel()

	lib := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"call (234) 567-8901 now", "(234) 567-8901"},
		{"call +1-234-567-8901 now", "+1-234-567-8901"},
		{"call 555-123-4567", "555-123-4567"},
		{"dial 1.234.567.8901", "1.234.567.8901"},
		{"dial 234.567.8901", "234.567.8901"},
		{"wa +12345678901", "+12345678901"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, lib.Phone.Pattern.FindString(tc.in))
		})
	}
	require.Empty(t, lib.Phone.Pattern.FindString("no digits here 12-34"))
}

func TestEmailPattern(t *testing.T) {
	t.Parallel()

	lib := Default()
	got := lib.Email.Pattern.FindAllString("mail Foo.Bar+x@Example.CO.uk or test@example.test, not a@b", -1)
	require.Equal(t, []string{"Foo.Bar+x@Example.CO.uk", "test@example.test"}, got)
}

func TestWalletRulesAreDisjoint(t *testing.T) {
	t.Parallel()

	samples := map[string]string{
		"1BoatSLRHtKNngkdXEeobR76b53LETtpyT":         CurrencyBTC,
		"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq": CurrencyBTC,
		"0x52908400098527886E0F7030069857D2E4169EE7": CurrencyETH,
		"LdP8Qox1VAhCzLJNqrr74YovaWYyNBUWvL":         CurrencyLTC,
		"rEb8TK3gBgk5auZkwc6sHnwrGVJH8DuaLh":         CurrencyXRP,
	}
	lib := Default()
	for addr, currency := range samples {
		var matched []string
		for _, rule := range lib.Wallets {
			if rule.Pattern.FindString("send to "+addr+" today") == addr {
				matched = append(matched, rule.Tag)
			}
		}
		require.Equal(t, []string{currency}, matched, addr)
	}
}

func TestSocialRules(t *testing.T) {
	t.Parallel()

	text := `<a href="https://t.me/scamhelp">tg</a> https://twitter.com/fakeco
		https://www.facebook.com/fake.page https://instagram.com/fake.gram
		https://wa.me/15551234567 https://discord.gg/abc123 https://discordapp.com/users/42`
	want := map[string]string{
		PlatformTelegram:  "t.me/scamhelp",
		PlatformTwitter:   "twitter.com/fakeco",
		PlatformFacebook:  "facebook.com/fake.page",
		PlatformInstagram: "instagram.com/fake.gram",
		PlatformWhatsApp:  "wa.me/15551234567",
	}
	lib := Default()
	for _, rule := range lib.Social {
		if expected, ok := want[rule.Tag]; ok {
			require.Equal(t, expected, rule.Pattern.FindString(text), rule.Tag)
		}
		if rule.Tag == PlatformDiscord {
			require.Equal(t, []string{"discord.gg/abc123", "discordapp.com/users/42"}, rule.Pattern.FindAllString(text, -1))
		}
	}
}

func TestDefaultLibraryShape(t *testing.T) {
	t.Parallel()

	lib := Default()
	require.Equal(t, Version, lib.Version)
	require.Len(t, lib.Wallets, 4)
	require.Len(t, lib.Social, 6)
	require.Same(t, lib, Default())
}
