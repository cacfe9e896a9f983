package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/acorn-io/dns01-hook/pkg/config"
	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/acorn-io/dns01-hook/pkg/transport"
	"github.com/sirupsen/logrus"
)

const ProviderDigitalOcean = "digitalocean"

func init() {
	Register(ProviderDigitalOcean, func(cfg *config.Config) (Provider, error) {
		if cfg.APIToken == "" {
			return nil, fmt.Errorf("%w: API_TOKEN must be set for the %s provider", config.ErrMissingCredential, ProviderDigitalOcean)
		}
		client := transport.New(cfg.APIURL, cfg.APIToken, transport.Options{
			Timeout:  cfg.HTTPTimeout,
			Insecure: cfg.HTTPInsecure,
			Headers:  cfg.HTTPHeaders,
		})
		return NewDigitalOcean(client, cfg.PageSize), nil
	})
}

// DigitalOcean talks to the DigitalOcean v2 domains API.
type DigitalOcean struct {
	client   *transport.Client
	pageSize int
	log      *logrus.Entry
}

func NewDigitalOcean(client *transport.Client, pageSize int) *DigitalOcean {
	return &DigitalOcean{
		client:   client,
		pageSize: pageSize,
		log:      logrus.WithField("provider", ProviderDigitalOcean),
	}
}

type doLinks struct {
	Pages struct {
		Next string `json:"next,omitempty"`
	} `json:"pages"`
}

type doDomain struct {
	Name string `json:"name"`
}

type doDomainsResponse struct {
	Domains []doDomain `json:"domains"`
	Links   doLinks    `json:"links"`
}

type doRecord struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

type doRecordsResponse struct {
	DomainRecords []doRecord `json:"domain_records"`
	Links         doLinks    `json:"links"`
}

func (d *DigitalOcean) ListZones(ctx context.Context) ([]string, error) {
	var zones []string

	next := fmt.Sprintf("domains?per_page=%d", d.pageSize)
	for next != "" {
		var resp doDomainsResponse
		if err := d.client.Do(ctx, http.MethodGet, next, nil, &resp); err != nil {
			return nil, err
		}
		for _, z := range resp.Domains {
			zones = append(zones, z.Name)
		}
		if resp.Links.Pages.Next == next {
			break
		}
		next = resp.Links.Pages.Next
	}

	d.log.Debugf("account has %d domains", len(zones))
	return zones, nil
}

func (d *DigitalOcean) ListRecords(ctx context.Context, zone, cursor string) (model.RecordPage, error) {
	path := cursor
	if path == "" {
		path = fmt.Sprintf("%s?type=%s&per_page=%d", recordsPath(zone), model.RecordTypeTxt, d.pageSize)
	}

	var resp doRecordsResponse
	if err := d.client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.RecordPage{}, err
	}

	page := model.RecordPage{
		Next: resp.Links.Pages.Next,
	}
	for _, r := range resp.DomainRecords {
		page.Records = append(page.Records, model.Record{
			ID:   strconv.FormatInt(r.ID, 10),
			Type: r.Type,
			Name: r.Name,
			Data: r.Data,
			TTL:  r.TTL,
		})
	}

	return page, nil
}

func (d *DigitalOcean) CreateRecord(ctx context.Context, zone string, record model.Record) error {
	body := doRecord{
		Type: record.Type,
		Name: relativeOrApex(record.Name),
		Data: record.Data,
		TTL:  record.TTL,
	}

	var resp struct {
		DomainRecord doRecord `json:"domain_record"`
	}
	if err := d.client.Do(ctx, http.MethodPost, recordsPath(zone), body, &resp); err != nil {
		return err
	}

	d.log.Debugf("created record %d in %s", resp.DomainRecord.ID, zone)
	return nil
}

func (d *DigitalOcean) DeleteRecord(ctx context.Context, zone string, record model.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record %s in %s has no id", record.Name, zone)
	}
	return d.client.Do(ctx, http.MethodDelete, recordsPath(zone)+"/"+url.PathEscape(record.ID), nil, nil)
}

func recordsPath(zone string) string {
	return "domains/" + url.PathEscape(zone) + "/records"
}
