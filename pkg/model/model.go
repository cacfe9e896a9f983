package model

import (
	"fmt"
	"strings"
)

const (
	RecordTypeA     = "A"
	RecordTypeAAAA  = "AAAA"
	RecordTypeCname = "CNAME"
	RecordTypeTxt   = "TXT"

	// ChallengeLabel is the label prepended to a domain to form its DNS-01 record name.
	ChallengeLabel = "_acme-challenge"

	// MinTTLSeconds is the lowest TTL the providers accept for a record.
	MinTTLSeconds = 30
)

func IsValidRecordType(rt string) error {
	switch rt {
	case RecordTypeA, RecordTypeAAAA, RecordTypeCname, RecordTypeTxt:
		return nil
	}

	return fmt.Errorf("invalid record type %q", rt)
}

// ChallengeRequest is one domain of a hook invocation with every token the
// ACME client asked to publish for it.
type ChallengeRequest struct {
	Domain string
	Tokens []string
}

// Token returns the sub-tokens joined the way the hook receives them.
func (c ChallengeRequest) Token() string {
	return strings.Join(c.Tokens, " ")
}

// ResolvedName is a challenge hostname split into the zone that owns it and
// the record name relative to that zone.
type ResolvedName struct {
	Zone         string `json:"zone,omitempty"`
	RelativeName string `json:"name,omitempty"`
	// Guessed is set when no known zone matched and the zone was derived heuristically.
	Guessed bool `json:"guessed,omitempty"`
}

func (r ResolvedName) FQDN() string {
	if r.RelativeName == "" {
		return r.Zone
	}
	return r.RelativeName + "." + r.Zone
}

func (r ResolvedName) String() string {
	return fmt.Sprintf("%s (zone %s)", r.FQDN(), r.Zone)
}

// Record is a DNS record as stored by the provider. Name is relative to its zone.
type Record struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	Data string `json:"data,omitempty"`
	TTL  int    `json:"ttl,omitempty"`
}

// RecordPage is one page of a record listing. An empty Next ends the listing.
type RecordPage struct {
	Records []Record
	Next    string
}

// PresentRequest is the body of the webhook's /present and /cleanup calls.
// FQDN and Value are set in the default mode, Domain, Token and KeyAuth in raw mode.
type PresentRequest struct {
	FQDN    string `json:"fqdn,omitempty"`
	Value   string `json:"value,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Token   string `json:"token,omitempty"`
	KeyAuth string `json:"keyAuth,omitempty"`
}

type PresentResponse struct {
	ResolvedName
	Records int `json:"records"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
