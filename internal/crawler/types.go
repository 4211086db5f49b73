package crawler

import (
	"net/http"
	"time"
)

// RecordStatus represents the investigation state of an IntelRecord.
type RecordStatus string

// Record status values persisted in the record store.
const (
	RecordStatusUnderInvestigation RecordStatus = "under_investigation"
	RecordStatusConfirmed          RecordStatus = "confirmed"
	RecordStatusDismissed          RecordStatus = "dismissed"
)

// ItemStatus is the observation state of a single identifier or website.
type ItemStatus string

// Item status values.
const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
)

// LookupState distinguishes "known absent" from "unknown" for enrichment data.
type LookupState string

// Lookup states recorded per WHOIS and per DNS record type.
const (
	LookupUnknown     LookupState = ""
	LookupOK          LookupState = "ok"
	LookupUnavailable LookupState = "unavailable"
)

// DNS record types queried by the enricher.
const (
	RecordTypeA   = "A"
	RecordTypeMX  = "MX"
	RecordTypeNS  = "NS"
	RecordTypeTXT = "TXT"
)

// DNSRecordTypes lists the record types in query order.
var DNSRecordTypes = []string{RecordTypeA, RecordTypeMX, RecordTypeNS, RecordTypeTXT}

// CrawlTarget is a URL waiting to be fetched at a given depth.
type CrawlTarget struct {
	URL   string
	Depth int
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Depth   int
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// Phone is an extracted phone number.
type Phone struct {
	Number           string     `json:"number"`
	NormalizedNumber string     `json:"normalizedNumber"`
	FirstSeen        time.Time  `json:"firstSeen"`
	LastSeen         time.Time  `json:"lastSeen"`
	Status           ItemStatus `json:"status"`
}

// Email is an extracted, lowercased email address.
type Email struct {
	Address    string     `json:"address"`
	DomainPart string     `json:"domainPart"`
	FirstSeen  time.Time  `json:"firstSeen"`
	LastSeen   time.Time  `json:"lastSeen"`
	Status     ItemStatus `json:"status"`
}

// Wallet is an extracted cryptocurrency address tagged with its currency.
type Wallet struct {
	Address   string    `json:"address"`
	Currency  string    `json:"currency"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// SocialProfile is an extracted social-media reference.
type SocialProfile struct {
	Platform   string     `json:"platform"`
	Handle     string     `json:"handle"`
	ProfileURL string     `json:"profileUrl"`
	FirstSeen  time.Time  `json:"firstSeen"`
	LastSeen   time.Time  `json:"lastSeen"`
	Status     ItemStatus `json:"status"`
}

// PageArtifacts is the extraction result for one fetched page.
type PageArtifacts struct {
	SourceURL      string          `json:"sourceUrl"`
	Title          string          `json:"title,omitempty"`
	FetchedAt      time.Time       `json:"fetchedAt"`
	Phones         []Phone         `json:"phones"`
	Emails         []Email         `json:"emails"`
	Wallets        []Wallet        `json:"wallets"`
	SocialProfiles []SocialProfile `json:"socialProfiles"`
	// Text is the rendered plain text of the page. It is never persisted on the record.
	Text string `json:"-"`
}

// Empty reports whether no identifier of any category was found.
func (p PageArtifacts) Empty() bool {
	return len(p.Phones) == 0 && len(p.Emails) == 0 && len(p.Wallets) == 0 && len(p.SocialProfiles) == 0
}

// Count returns the total number of extracted identifiers.
func (p PageArtifacts) Count() int {
	return len(p.Phones) + len(p.Emails) + len(p.Wallets) + len(p.SocialProfiles)
}

// DomainInfo is registration and DNS metadata for a registrable domain.
type DomainInfo struct {
	RegistrableDomain string                 `json:"registrableDomain"`
	Registrar         string                 `json:"registrar,omitempty"`
	CreationDate      *time.Time             `json:"creationDate,omitempty"`
	ExpirationDate    *time.Time             `json:"expirationDate,omitempty"`
	UpdatedDate       *time.Time             `json:"updatedDate,omitempty"`
	NameServers       []string               `json:"nameServers,omitempty"`
	Status            []string               `json:"status,omitempty"`
	DNSRecords        map[string][]string    `json:"dnsRecords"`
	WhoisState        LookupState            `json:"whoisState"`
	DNSState          map[string]LookupState `json:"dnsState"`
	LastChecked       time.Time              `json:"lastChecked"`
}

// AgeDays returns the domain age in whole days and whether it is known.
func (d DomainInfo) AgeDays(now time.Time) (int, bool) {
	if d.WhoisState != LookupOK || d.CreationDate == nil || d.CreationDate.IsZero() {
		return 0, false
	}
	age := now.Sub(*d.CreationDate)
	if age < 0 {
		return 0, true
	}
	return int(age.Hours() / 24), true
}

// Checked reports whether any lookup has populated this DomainInfo.
func (d DomainInfo) Checked() bool {
	return !d.LastChecked.IsZero()
}

// Identifiers groups the per-category identifier sets of a record.
type Identifiers struct {
	Phones  []Phone  `json:"phones"`
	Emails  []Email  `json:"emails"`
	Wallets []Wallet `json:"cryptoWallets"`
}

// Website is a page URL under the record's domain on which identifiers were seen.
type Website struct {
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	Title       string     `json:"title,omitempty"`
	SnapshotURI string     `json:"snapshotUri,omitempty"`
	Status      ItemStatus `json:"status"`
	FirstSeen   time.Time  `json:"firstSeen"`
	LastSeen    time.Time  `json:"lastSeen"`
}

// IntelRecord is the persisted unit, one per registrable domain.
type IntelRecord struct {
	ID          string          `json:"id"`
	Domain      string          `json:"domain"`
	Status      RecordStatus    `json:"status"`
	DateAdded   time.Time       `json:"dateAdded"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Identifiers Identifiers     `json:"identifiers"`
	Websites    []Website       `json:"websites"`
	SocialMedia []SocialProfile `json:"socialMedia"`
	DomainInfo  DomainInfo      `json:"domainInfo"`
	RiskScore   int             `json:"riskScore"`
}
