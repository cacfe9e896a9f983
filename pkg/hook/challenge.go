package hook

import (
	"fmt"
	"strings"

	"github.com/acorn-io/dns01-hook/pkg/model"
)

// ParseChallenges reads (domain, token file, token) triples. Wildcard domains
// are reduced to their base domain and repeated domains are merged, keeping
// the order in which domains first appear.
func ParseChallenges(args []string) ([]model.ChallengeRequest, error) {
	if len(args)%3 != 0 {
		return nil, fmt.Errorf("expected domain, token file and token triples, got %d arguments", len(args))
	}

	var requests []model.ChallengeRequest
	index := map[string]int{}
	for i := 0; i < len(args); i += 3 {
		domain := NormalizeDomain(args[i])
		if domain == "" {
			return nil, fmt.Errorf("empty domain in argument %d", i+1)
		}
		tokens := strings.Fields(args[i+2])

		if j, ok := index[domain]; ok {
			requests[j].Tokens = append(requests[j].Tokens, tokens...)
			continue
		}
		index[domain] = len(requests)
		requests = append(requests, model.ChallengeRequest{
			Domain: domain,
			Tokens: tokens,
		})
	}

	return requests, nil
}

// NormalizeDomain strips a leading wildcard label and the trailing dot. A
// wildcard shares the _acme-challenge record of its base domain.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "*.")
	return strings.TrimSuffix(domain, ".")
}
