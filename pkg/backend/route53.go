package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/acorn-io/dns01-hook/pkg/config"
	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/sirupsen/logrus"
)

const (
	ProviderRoute53 = "route53"

	// route53 rejects larger pages for ListResourceRecordSets
	route53MaxItems = 300
	cursorSeparator = " "
)

func init() {
	Register(ProviderRoute53, func(cfg *config.Config) (Provider, error) {
		s, err := session.NewSession()
		if err != nil {
			return nil, err
		}

		// failures are fatal to the hook, so the SDK must not retry on its own
		svc := route53.New(s, &aws.Config{
			MaxRetries: aws.Int(0),
		})

		return NewRoute53(svc, cfg.Route53PrivateZones, cfg.PageSize), nil
	})
}

// Route53 keeps every TXT value for a name in one record set, so one listed
// record can carry several challenge tokens.
type Route53 struct {
	Svc route53iface.Route53API

	private  bool
	maxItems int
	zoneIDs  map[string]string
	log      *logrus.Entry
}

func NewRoute53(svc route53iface.Route53API, private bool, pageSize int) *Route53 {
	if pageSize <= 0 || pageSize > route53MaxItems {
		pageSize = route53MaxItems
	}
	return &Route53{
		Svc:      svc,
		private:  private,
		maxItems: pageSize,
		zoneIDs:  map[string]string{},
		log:      logrus.WithField("provider", ProviderRoute53),
	}
}

func (b *Route53) ListZones(ctx context.Context) ([]string, error) {
	var zones []string
	err := b.Svc.ListHostedZonesPagesWithContext(ctx, &route53.ListHostedZonesInput{},
		func(page *route53.ListHostedZonesOutput, lastPage bool) bool {
			for _, z := range page.HostedZones {
				if !b.private && z.Config != nil && aws.BoolValue(z.Config.PrivateZone) {
					continue
				}
				name := strings.TrimSuffix(aws.StringValue(z.Name), ".")
				if _, seen := b.zoneIDs[name]; !seen {
					b.zoneIDs[name] = aws.StringValue(z.Id)
					zones = append(zones, name)
				}
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("error communicating with Route53: %w", err)
	}
	return zones, nil
}

func (b *Route53) ListRecords(ctx context.Context, zone, cursor string) (model.RecordPage, error) {
	zoneID, err := b.zoneID(ctx, zone)
	if err != nil {
		return model.RecordPage{}, err
	}

	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		MaxItems:     aws.String(strconv.Itoa(b.maxItems)),
	}
	if cursor != "" {
		name, rType, _ := strings.Cut(cursor, cursorSeparator)
		input.StartRecordName = aws.String(name)
		if rType != "" {
			input.StartRecordType = aws.String(rType)
		}
	}

	out, err := b.Svc.ListResourceRecordSetsWithContext(ctx, input)
	if err != nil {
		return model.RecordPage{}, fmt.Errorf("error communicating with Route53: %w", err)
	}

	var page model.RecordPage
	for _, recordSet := range out.ResourceRecordSets {
		if aws.StringValue(recordSet.Type) != model.RecordTypeTxt {
			continue
		}
		fqdn := cleanRecordName(aws.StringValue(recordSet.Name))
		page.Records = append(page.Records, model.Record{
			ID:   fqdn,
			Type: model.RecordTypeTxt,
			Name: relativeName(fqdn, zone),
			Data: joinValues(recordSet.ResourceRecords),
			TTL:  int(aws.Int64Value(recordSet.TTL)),
		})
	}

	if aws.BoolValue(out.IsTruncated) {
		page.Next = aws.StringValue(out.NextRecordName) + cursorSeparator + aws.StringValue(out.NextRecordType)
	}

	return page, nil
}

// CreateRecord adds the value to the name's TXT record set, creating the set
// when it does not exist yet.
func (b *Route53) CreateRecord(ctx context.Context, zone string, record model.Record) error {
	zoneID, err := b.zoneID(ctx, zone)
	if err != nil {
		return err
	}

	fqdn := fqdnOf(record.Name, zone)
	existing, err := b.lookup(ctx, zoneID, fqdn)
	if err != nil {
		return err
	}

	value := cleanRecordValue(model.RecordTypeTxt, record.Data)
	var rr []*route53.ResourceRecord
	if existing != nil {
		for _, r := range existing.ResourceRecords {
			if aws.StringValue(r.Value) == value {
				b.log.Debugf("TXT value already present on %s", fqdn)
				return nil
			}
		}
		rr = append(rr, existing.ResourceRecords...)
	}
	rr = append(rr, &route53.ResourceRecord{Value: aws.String(value)})

	rrsInput := route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &route53.ChangeBatch{
			Changes: []*route53.Change{
				{
					Action: aws.String(route53.ChangeActionUpsert),
					ResourceRecordSet: &route53.ResourceRecordSet{
						Type:            aws.String(model.RecordTypeTxt),
						Name:            aws.String(fqdn),
						ResourceRecords: rr,
						TTL:             aws.Int64(int64(record.TTL)),
					},
				},
			},
		},
	}

	if _, err := b.Svc.ChangeResourceRecordSetsWithContext(ctx, &rrsInput); err != nil {
		return fmt.Errorf("failed to upsert route53 record %v with error %w", fqdn, err)
	}
	return nil
}

// DeleteRecord removes the whole TXT record set. The set is read again first
// because route53 only deletes an exact copy of what it stores.
func (b *Route53) DeleteRecord(ctx context.Context, zone string, record model.Record) error {
	zoneID, err := b.zoneID(ctx, zone)
	if err != nil {
		return err
	}

	fqdn := record.ID
	if fqdn == "" {
		fqdn = fqdnOf(record.Name, zone)
	}

	recordSet, err := b.lookup(ctx, zoneID, fqdn)
	if err != nil {
		return err
	}
	if recordSet == nil {
		b.log.Debugf("TXT record set %s already gone", fqdn)
		return nil
	}

	changeInput := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &route53.ChangeBatch{
			Changes: []*route53.Change{
				{
					Action:            aws.String(route53.ChangeActionDelete),
					ResourceRecordSet: recordSet,
				},
			},
		},
	}

	if _, err := b.Svc.ChangeResourceRecordSetsWithContext(ctx, changeInput); err != nil {
		return fmt.Errorf("unable to delete recordSet %v from Route53: %w", fqdn, err)
	}
	return nil
}

func (b *Route53) zoneID(ctx context.Context, zone string) (string, error) {
	if id, ok := b.zoneIDs[zone]; ok {
		return id, nil
	}

	out, err := b.Svc.ListHostedZonesByNameWithContext(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  aws.String(zone),
		MaxItems: aws.String("1"),
	})
	if err != nil {
		return "", fmt.Errorf("error communicating with Route53: %w", err)
	}

	for _, z := range out.HostedZones {
		if strings.EqualFold(strings.TrimSuffix(aws.StringValue(z.Name), "."), zone) {
			b.zoneIDs[zone] = aws.StringValue(z.Id)
			return b.zoneIDs[zone], nil
		}
	}

	return "", fmt.Errorf("route53 hosted zone %s not found", zone)
}

// lookup returns the TXT record set named fqdn, or nil when there is none.
func (b *Route53) lookup(ctx context.Context, zoneID, fqdn string) (*route53.ResourceRecordSet, error) {
	out, err := b.Svc.ListResourceRecordSetsWithContext(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(fqdn),
		StartRecordType: aws.String(model.RecordTypeTxt),
		MaxItems:        aws.String("1"),
	})
	if err != nil {
		return nil, fmt.Errorf("error communicating with Route53: %w", err)
	}

	for _, recordSet := range out.ResourceRecordSets {
		if aws.StringValue(recordSet.Type) == model.RecordTypeTxt &&
			strings.EqualFold(cleanRecordName(aws.StringValue(recordSet.Name)), fqdn) {
			return recordSet, nil
		}
	}
	return nil, nil
}

// cleanRecordName undoes route53's octal escaping of wildcards and drops the trailing dot.
func cleanRecordName(name string) string {
	return strings.TrimSuffix(strings.Replace(name, "\\052", "*", 1), ".")
}

func cleanRecordValue(rType string, value string) string {
	if rType == model.RecordTypeTxt && !strings.HasPrefix(value, "\"") {
		return "\"" + value + "\""
	}

	return value
}

func joinValues(rr []*route53.ResourceRecord) string {
	values := make([]string, 0, len(rr))
	for _, r := range rr {
		values = append(values, strings.Trim(aws.StringValue(r.Value), "\""))
	}
	return strings.Join(values, " ")
}

func fqdnOf(name, zone string) string {
	if name == "" || name == ApexName {
		return zone
	}
	return name + "." + zone
}

func relativeName(fqdn, zone string) string {
	if strings.EqualFold(fqdn, zone) {
		return ApexName
	}
	return strings.TrimSuffix(fqdn, "."+zone)
}
