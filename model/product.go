package model

import "time"

// ProductCode is an opaque product identifier as known by an upstream feed.
// A product may be known by several codes (primary plus aliases).
type ProductCode = string

// Product is the canonical per-product view produced by reconciliation.
// AlternativeCodes never contains the primary code.
type Product struct {
	ProductCode      ProductCode
	ProductName      string
	AlternativeCodes []ProductCode
}

// LocalProduct is the persisted projection of a Product plus the timestamp of
// the last successful reconciliation check.
type LocalProduct struct {
	ProductCode      ProductCode
	ProductName      string
	AlternativeCodes []ProductCode
	LastUpdate       time.Time
}

// ProductRelease is one release entry from the data-services (JSON) feed.
// DownloadURL is empty when no Linux distribution exists for the release.
type ProductRelease struct {
	ProductCode     ProductCode
	BuildFullNumber string
	BuildVersion    string
	ReleaseDate     time.Time
	DownloadURL     string
}

// ProductAndReleases pairs a product with its releases from the JSON feed.
type ProductAndReleases struct {
	Product  Product
	Releases []ProductRelease
}

// BuildInfo is one released build from the updates (XML) feed, restricted to
// release-status channels.
type BuildInfo struct {
	ProductCode     ProductCode
	BuildFullNumber string
	BuildVersion    string
	ReleaseDate     time.Time
}

// FamilyGroupBuilds groups the builds of one update channel family under the
// full set of product codes that share the channel (for example a Community
// and Ultimate pair).
type FamilyGroupBuilds struct {
	RelatedProductCodes []ProductCode
	FamilyGroupName     string
	Builds              []BuildInfo
}

// HasProductCode reports whether code belongs to this family group.
func (f FamilyGroupBuilds) HasProductCode(code ProductCode) bool {
	for _, c := range f.RelatedProductCodes {
		if c == code {
			return true
		}
	}
	return false
}
