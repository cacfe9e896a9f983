package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/sirupsen/logrus"
)

// Clean deletes the zone's TXT records whose name starts with the relative
// name, or equals it in exact match mode. Every page of the listing is read
// before anything is deleted. It returns the number of records deleted;
// finding nothing to delete is not an error.
func (m *Manager) Clean(ctx context.Context, name model.ResolvedName) (int, error) {
	log := m.log.WithFields(logrus.Fields{
		"zone": name.Zone,
		"name": relativeOrApex(name.RelativeName),
	})

	var toDelete []model.Record
	cursor := ""
	pages := 0
	for {
		page, err := m.provider.ListRecords(ctx, name.Zone, cursor)
		if err != nil {
			return 0, fmt.Errorf("failed to list records in zone %s: %w", name.Zone, err)
		}
		pages++

		for _, r := range page.Records {
			if m.matches(r, name.RelativeName) {
				toDelete = append(toDelete, r)
			}
		}

		if page.Next == "" || page.Next == cursor {
			break
		}
		cursor = page.Next
	}

	log.Debugf("read %d pages, %d records to delete", pages, len(toDelete))
	if len(toDelete) == 0 {
		log.Info("no challenge records to delete")
		return 0, nil
	}

	deleted := 0
	for _, r := range toDelete {
		log.WithField("id", r.ID).Infof("deleting TXT record %s", r.Name)
		if err := m.provider.DeleteRecord(ctx, name.Zone, r); err != nil {
			return deleted, fmt.Errorf("failed to delete TXT record %s (%s) in zone %s: %w", r.Name, r.ID, name.Zone, err)
		}
		deleted++
	}

	return deleted, nil
}

// matches reports whether r is a challenge record for relative. An empty
// relative name (the zone apex) is always matched exactly.
func (m *Manager) matches(r model.Record, relative string) bool {
	if !strings.EqualFold(r.Type, model.RecordTypeTxt) {
		return false
	}

	name := strings.ToLower(r.Name)
	want := strings.ToLower(relativeOrApex(relative))
	if m.exactMatch || relative == "" {
		return name == want
	}
	return strings.HasPrefix(name, want)
}
