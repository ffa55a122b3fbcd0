// Package models defines the unified business profile: the fixed shape all
// source payloads are normalized into, plus the provenance metadata that
// travels with every resolution result.
package models

import (
	"time"

	"trustcheck/internal/classifier"
	"trustcheck/pkg/domain"
)

// DataQuality is the coarse trust tier of a resolved fact.
type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// Provenance explains where a fact came from and how trustworthy it is.
// Invariant: always present and consistent with how the fact was actually
// obtained - never CacheHit=true for a freshly fetched value.
type Provenance struct {
	DataSource  domain.Source `json:"data_source"`
	DataQuality DataQuality   `json:"data_quality"`
	CacheHit    bool          `json:"cache_hit"`
	// Stale marks a successful resolution from an out-of-date cache entry
	// after a live fetch failed. Never silently presented as fresh.
	Stale       bool      `json:"stale"`
	LastUpdated time.Time `json:"last_updated"`
}

// EntityStatus is the registration status reported by the companies registry.
type EntityStatus string

const (
	StatusActive      EntityStatus = "active"
	StatusInactive    EntityStatus = "inactive"
	StatusLiquidating EntityStatus = "liquidating"
	StatusDissolved   EntityStatus = "dissolved"
	// StatusUnknown is used by synthetic fallback profiles only.
	StatusUnknown EntityStatus = "unknown"
)

// Owner is one entry in the ownership list.
type Owner struct {
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	SharePercent float64 `json:"share_percent"`
}

// Identity holds the core registration facts.
type Identity struct {
	LegalName        string       `json:"legal_name"`
	LegalNameEnglish string       `json:"legal_name_english,omitempty"`
	EntityType       string       `json:"entity_type"`
	Status           EntityStatus `json:"status"`
	RegistrationDate *time.Time   `json:"registration_date,omitempty"`
	City             string       `json:"city,omitempty"`
	Address          string       `json:"address,omitempty"`
	Owners           []Owner      `json:"owners,omitempty"`
	// Violating marks the registry's violating-entity flag (annual report or
	// fee violations).
	Violating bool `json:"violating"`
}

// LegalExposure summarizes court case involvement.
type LegalExposure struct {
	ActiveCases     int     `json:"active_cases"`
	TotalCases      int     `json:"total_cases"`
	ActiveAmountNIS float64 `json:"active_amount_nis"`
	TotalAmountNIS  float64 `json:"total_amount_nis"`
}

// EnforcementExposure summarizes enforcement authority proceedings.
type EnforcementExposure struct {
	ActiveProceedings int     `json:"active_proceedings"`
	TotalProceedings  int     `json:"total_proceedings"`
	TotalDebtNIS      float64 `json:"total_debt_nis"`
}

// VATRecord holds the dealer registry facts.
type VATRecord struct {
	DealerType    string `json:"dealer_type"`
	VATRegistered bool   `json:"vat_registered"`
	// WithholdingCertIssues counts problems with the withholding tax
	// certificate (expired, revoked, never issued).
	WithholdingCertIssues int `json:"withholding_cert_issues"`
}

// BankRestriction holds the restricted-accounts snapshot facts.
type BankRestriction struct {
	Restricted bool       `json:"restricted"`
	Since      *time.Time `json:"since,omitempty"`
}

// RiskFlags is the at-a-glance boolean summary derived from the resolved
// facts at merge time. A flag is false both when the condition is absent and
// when the backing fact is missing; consumers needing the distinction check
// the fact itself.
type RiskFlags struct {
	Violating         bool `json:"violating"`
	RestrictedAccount bool `json:"restricted_account"`
	Bankruptcy        bool `json:"bankruptcy"`
	HighDebt          bool `json:"high_debt"`
}

// BusinessProfile is the fusion output: every independently resolved fact
// type merged under one identifier. Missing sub-profiles stay nil - a failed
// fact type never aborts the others.
type BusinessProfile struct {
	BusinessID     domain.BusinessID         `json:"business_id"`
	Classification classifier.Classification `json:"classification"`

	Identity    *Identity            `json:"identity,omitempty"`
	Legal       *LegalExposure       `json:"legal,omitempty"`
	Enforcement *EnforcementExposure `json:"enforcement,omitempty"`
	VAT         *VATRecord           `json:"vat,omitempty"`
	Bank        *BankRestriction     `json:"bank,omitempty"`

	Flags RiskFlags `json:"flags"`

	// Provenance describes the identity fact, the profile's backbone.
	Provenance Provenance `json:"provenance"`
	// FactProvenance tracks each resolved fact type independently.
	FactProvenance map[domain.FactType]Provenance `json:"fact_provenance"`

	ResolvedAt time.Time `json:"resolved_at"`
}
