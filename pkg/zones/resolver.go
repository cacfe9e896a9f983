package zones

import (
	"strings"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const guessLabels = 2

// Resolver maps a domain to the zone and relative name of its challenge record.
type Resolver struct {
	zones *Directory
	// suffix is appended to every challenge hostname, for challenge records
	// CNAMEd into a separate zone.
	suffix            string
	publicSuffixGuess bool
	log               *logrus.Entry
}

func NewResolver(zones *Directory, suffix string, publicSuffixGuess bool) *Resolver {
	if zones == nil {
		zones = NewDirectory(nil)
	}
	return &Resolver{
		zones:             zones,
		suffix:            strings.Trim(strings.TrimSpace(suffix), "."),
		publicSuffixGuess: publicSuffixGuess,
		log:               logrus.WithField("component", "resolver"),
	}
}

// Hostname returns the fully qualified challenge record name for domain, without the trailing dot.
func (r *Resolver) Hostname(domain string) string {
	h := model.ChallengeLabel + "." + strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if r.suffix != "" {
		h += "." + r.suffix
	}
	return h
}

// Resolve always returns a name. When no zone matches, the zone is guessed and
// the result is marked as such so the provider reports the real problem.
func (r *Resolver) Resolve(domain string) model.ResolvedName {
	return r.ResolveFQDN(r.Hostname(domain))
}

// ResolveFQDN resolves a record name that is already fully qualified, such as
// a challenge name whose CNAME was followed by the ACME client.
func (r *Resolver) ResolveFQDN(hostname string) model.ResolvedName {
	hostname = strings.TrimSuffix(strings.TrimSpace(hostname), ".")

	if zone, rel, ok := r.zones.Match(hostname); ok {
		r.log.Debugf("%s belongs to zone %s", hostname, zone)
		return model.ResolvedName{
			Zone:         zone,
			RelativeName: rel,
		}
	}

	zone, rel := r.guess(hostname)
	r.log.Warnf("no known zone matches %s, guessing zone %s with record name %s", hostname, zone, rel)

	return model.ResolvedName{
		Zone:         zone,
		RelativeName: rel,
		Guessed:      true,
	}
}

func (r *Resolver) guess(hostname string) (zone, relative string) {
	labels := dns.SplitDomainName(hostname)

	n := guessLabels
	if r.publicSuffixGuess {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(hostname)); err == nil {
			n = dns.CountLabel(etld1)
		}
	}
	if n > len(labels) {
		n = len(labels)
	}

	cut := len(labels) - n
	return Normalize(strings.Join(labels[cut:], ".")), strings.Join(labels[:cut], ".")
}
