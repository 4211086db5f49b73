// Package patterns holds the identifier-matching rules applied by the extractor.
package patterns

import "regexp"

// Version identifies the rule set; bump it whenever a rule changes.
const Version = "2"

// Kind names an identifier category.
type Kind string

// Identifier kinds.
const (
	KindPhone  Kind = "phone"
	KindEmail  Kind = "email"
	KindWallet Kind = "wallet"
	KindSocial Kind = "socialProfile"
)

// Currency tags for wallet rules.
const (
	CurrencyBTC = "BTC"
	CurrencyETH = "ETH"
	CurrencyLTC = "LTC"
	CurrencyXRP = "XRP"
)

// Platform tags for social profile rules.
const (
	PlatformTelegram  = "telegram"
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformWhatsApp  = "whatsapp"
	PlatformDiscord   = "discord"
)

// Rule is a single matcher tagged with the currency or platform it identifies.
type Rule struct {
	Kind    Kind
	Tag     string
	Pattern *regexp.Regexp
}

// Library is the full rule set. Wallets and Social are evaluated in slice order.
type Library struct {
	Version string
	Phone   Rule
	Email   Rule
	Wallets []Rule
	Social  []Rule
}

// Phone alternatives, in priority order: grouped or dashed with optional
// country code, dotted, then a bare digit run with a country prefix.
var phonePattern = regexp.MustCompile(
	`(?:\+\d{1,3}[\s-]?)?\(?\d{3}\)?[\s-]?\d{3}[\s-]?\d{4}` +
		`|(?:\+\d{1,3}[\s-]?)?\d{3}[-\s]?\d{3}[-\s]?\d{4}` +
		`|(?:\+?\d{1,3}\.?)?\d{3}\.\d{3}\.\d{4}` +
		`|\+?\d{1,3}\d{10}`,
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var defaultLibrary = &Library{
	Version: Version,
	Phone:   Rule{Kind: KindPhone, Pattern: phonePattern},
	Email:   Rule{Kind: KindEmail, Pattern: emailPattern},
	// Leading characters keep the wallet rules disjoint: bc1/1/3 for BTC,
	// 0x for ETH, L/M for LTC and r for XRP.
	Wallets: []Rule{
		{Kind: KindWallet, Tag: CurrencyBTC, Pattern: regexp.MustCompile(
			`\bbc1[ac-hj-np-z02-9]{25,39}\b|\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`)},
		{Kind: KindWallet, Tag: CurrencyETH, Pattern: regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)},
		{Kind: KindWallet, Tag: CurrencyLTC, Pattern: regexp.MustCompile(`\b[LM][a-km-zA-HJ-NP-Z1-9]{26,33}\b`)},
		{Kind: KindWallet, Tag: CurrencyXRP, Pattern: regexp.MustCompile(`\br[0-9a-zA-Z]{24,34}\b`)},
	},
	Social: []Rule{
		{Kind: KindSocial, Tag: PlatformTelegram, Pattern: regexp.MustCompile(`t\.me/\w+`)},
		{Kind: KindSocial, Tag: PlatformTwitter, Pattern: regexp.MustCompile(`twitter\.com/\w+`)},
		{Kind: KindSocial, Tag: PlatformFacebook, Pattern: regexp.MustCompile(`facebook\.com/[\w.]+`)},
		{Kind: KindSocial, Tag: PlatformInstagram, Pattern: regexp.MustCompile(`instagram\.com/[\w.]+`)},
		{Kind: KindSocial, Tag: PlatformWhatsApp, Pattern: regexp.MustCompile(`wa\.me/\d+`)},
		{Kind: KindSocial, Tag: PlatformDiscord, Pattern: regexp.MustCompile(`discord\.gg/\w+|discordapp\.com/users/\d+`)},
	},
}

// Default returns the built-in rule set. The returned value is shared and must not be modified.
func Default() *Library {
	return defaultLibrary
}
