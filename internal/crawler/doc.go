// Package crawler holds the domain model shared by every subsystem of the
// scam-intel crawler: intel records and their identifiers, the port
// interfaces implemented by fetchers, enrichers and stores, the fetch and
// store error taxonomy, and the merge rules applied when an observation is
// folded into an existing record.
package crawler
