package staging

import (
	"fmt"
	"strings"
)

// Domain identifies which staging flow a ledger belongs to. Each
// (terminal, domain) pair owns an independent ledger; the four flows share
// one state machine instead of four divergent copies.
type Domain string

const (
	// DomainPurchase stages supplier invoice lines.
	DomainPurchase Domain = "purchase"
	// DomainCollection stages receivable installments for pre-collection.
	DomainCollection Domain = "collection"
	// DomainAdjustment stages stock adjustment lines.
	DomainAdjustment Domain = "adjustment"
	// DomainSale stages customer invoice lines.
	DomainSale Domain = "sale"
)

// ParseDomain validates a route or payload domain value.
func ParseDomain(value string) (Domain, error) {
	switch Domain(strings.ToLower(strings.TrimSpace(value))) {
	case DomainPurchase:
		return DomainPurchase, nil
	case DomainCollection:
		return DomainCollection, nil
	case DomainAdjustment:
		return DomainAdjustment, nil
	case DomainSale:
		return DomainSale, nil
	}
	return "", fmt.Errorf("unknown staging domain %q", value)
}

// RequiresDocumentRef reports whether commits in this domain need an external
// document number on the header. Stock adjustments are internal movements and
// carry none.
func (d Domain) RequiresDocumentRef() bool {
	switch d {
	case DomainPurchase, DomainCollection, DomainSale:
		return true
	}
	return false
}
