package crawler

import (
	"time"
)

// NewRecord builds the record observed on a single page under domain.
func NewRecord(id, domain string, artifacts PageArtifacts, info DomainInfo, now time.Time) IntelRecord {
	seen := artifacts.FetchedAt
	if seen.IsZero() {
		seen = now
	}
	rec := IntelRecord{
		ID:          id,
		Domain:      domain,
		Status:      RecordStatusUnderInvestigation,
		DateAdded:   now,
		LastUpdated: now,
		Identifiers: Identifiers{
			Phones:  append([]Phone(nil), artifacts.Phones...),
			Emails:  append([]Email(nil), artifacts.Emails...),
			Wallets: append([]Wallet(nil), artifacts.Wallets...),
		},
		SocialMedia: append([]SocialProfile(nil), artifacts.SocialProfiles...),
		DomainInfo:  info,
	}
	if artifacts.SourceURL != "" {
		rec.Websites = []Website{{
			URL:       artifacts.SourceURL,
			Domain:    domain,
			Title:     artifacts.Title,
			Status:    ItemStatusActive,
			FirstSeen: seen,
			LastSeen:  seen,
		}}
	}
	return rec
}

// MergeRecords folds incoming into existing. Identifier sets are unioned per
// category, firstSeen and dateAdded keep their original values, lastSeen only
// moves forward, and lastUpdated becomes the latest of the two records and now.
// The risk score is left for the caller to recompute on the merged result.
func MergeRecords(existing, incoming IntelRecord, now time.Time) IntelRecord {
	if existing.Domain == "" {
		existing = IntelRecord{
			ID:          incoming.ID,
			Domain:      incoming.Domain,
			Status:      incoming.Status,
			DateAdded:   incoming.DateAdded,
			LastUpdated: incoming.LastUpdated,
			RiskScore:   incoming.RiskScore,
		}
		if existing.DateAdded.IsZero() {
			existing.DateAdded = now
		}
	}

	out := existing
	if out.ID == "" {
		out.ID = incoming.ID
	}
	if out.Status == "" {
		out.Status = RecordStatusUnderInvestigation
	}
	if out.DateAdded.IsZero() {
		out.DateAdded = incoming.DateAdded
	}
	out.LastUpdated = latest(latest(existing.LastUpdated, incoming.LastUpdated), now)

	out.Identifiers.Phones = mergeItems(existing.Identifiers.Phones, incoming.Identifiers.Phones, phoneKey,
		func(old, in Phone) Phone {
			old.FirstSeen = earliest(old.FirstSeen, in.FirstSeen)
			old.LastSeen = latest(old.LastSeen, in.LastSeen)
			old.Status = keepStatus(old.Status, in.Status)
			return old
		})
	out.Identifiers.Emails = mergeItems(existing.Identifiers.Emails, incoming.Identifiers.Emails,
		func(e Email) string { return e.Address },
		func(old, in Email) Email {
			old.FirstSeen = earliest(old.FirstSeen, in.FirstSeen)
			old.LastSeen = latest(old.LastSeen, in.LastSeen)
			old.Status = keepStatus(old.Status, in.Status)
			return old
		})
	out.Identifiers.Wallets = mergeItems(existing.Identifiers.Wallets, incoming.Identifiers.Wallets,
		func(w Wallet) string { return w.Address },
		func(old, in Wallet) Wallet {
			old.FirstSeen = earliest(old.FirstSeen, in.FirstSeen)
			old.LastSeen = latest(old.LastSeen, in.LastSeen)
			return old
		})
	out.SocialMedia = mergeItems(existing.SocialMedia, incoming.SocialMedia,
		func(s SocialProfile) string { return s.ProfileURL },
		func(old, in SocialProfile) SocialProfile {
			old.FirstSeen = earliest(old.FirstSeen, in.FirstSeen)
			old.LastSeen = latest(old.LastSeen, in.LastSeen)
			old.Status = keepStatus(old.Status, in.Status)
			return old
		})
	out.Websites = mergeItems(existing.Websites, incoming.Websites,
		func(w Website) string { return w.URL },
		func(old, in Website) Website {
			old.FirstSeen = earliest(old.FirstSeen, in.FirstSeen)
			old.LastSeen = latest(old.LastSeen, in.LastSeen)
			old.Status = keepStatus(old.Status, in.Status)
			if in.Title != "" {
				old.Title = in.Title
			}
			if in.SnapshotURI != "" {
				old.SnapshotURI = in.SnapshotURI
			}
			return old
		})
	out.DomainInfo = preferDomainInfo(existing.DomainInfo, incoming.DomainInfo)
	return out
}

func phoneKey(p Phone) string {
	if p.NormalizedNumber != "" {
		return p.NormalizedNumber
	}
	return p.Number
}

// preferDomainInfo keeps a successful WHOIS result over a failed refresh.
func preferDomainInfo(existing, incoming DomainInfo) DomainInfo {
	switch {
	case !existing.Checked():
		return incoming
	case !incoming.Checked():
		return existing
	case incoming.WhoisState == LookupOK || existing.WhoisState != LookupOK:
		return incoming
	default:
		return existing
	}
}

// mergeItems unions incoming into base preserving base order, appending unseen
// items in incoming order. Matching items are combined with fold.
func mergeItems[T any](base, incoming []T, key func(T) string, fold func(old, in T) T) []T {
	if len(base) == 0 && len(incoming) == 0 {
		return base
	}
	out := make([]T, 0, len(base)+len(incoming))
	index := make(map[string]int, len(base)+len(incoming))
	for _, item := range base {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = fold(out[i], item)
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	for _, item := range incoming {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = fold(out[i], item)
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

func keepStatus(old, in ItemStatus) ItemStatus {
	if old != "" {
		return old
	}
	return in
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
