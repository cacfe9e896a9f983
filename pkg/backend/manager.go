package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/sirupsen/logrus"
)

// ApexName is the relative name of a zone's apex.
const ApexName = "@"

// Manager creates and removes challenge TXT records through a Provider.
// Calls are made one at a time and the first failure aborts the operation.
type Manager struct {
	provider   Provider
	ttl        int
	exactMatch bool
	log        *logrus.Entry
}

func NewManager(provider Provider, ttlSeconds int, exactMatch bool) *Manager {
	if ttlSeconds < model.MinTTLSeconds {
		ttlSeconds = model.MinTTLSeconds
	}
	return &Manager{
		provider:   provider,
		ttl:        ttlSeconds,
		exactMatch: exactMatch,
		log:        logrus.WithField("component", "manager"),
	}
}

func (m *Manager) Provider() Provider {
	return m.provider
}

// Deploy creates one TXT record per whitespace separated sub-token. Records
// created before a failure are left in place.
func (m *Manager) Deploy(ctx context.Context, name model.ResolvedName, token string) error {
	tokens := strings.Fields(token)
	if len(tokens) == 0 {
		return fmt.Errorf("no challenge token given for %s", name.FQDN())
	}

	for _, t := range tokens {
		record := model.Record{
			Type: model.RecordTypeTxt,
			Name: relativeOrApex(name.RelativeName),
			Data: t,
			TTL:  m.ttl,
		}

		m.log.WithFields(logrus.Fields{
			"zone": name.Zone,
			"name": record.Name,
			"ttl":  record.TTL,
		}).Info("creating TXT record")

		if err := m.provider.CreateRecord(ctx, name.Zone, record); err != nil {
			return fmt.Errorf("failed to create TXT record %s: %w", name.FQDN(), err)
		}
	}

	return nil
}

func relativeOrApex(name string) string {
	if name == "" {
		return ApexName
	}
	return name
}
