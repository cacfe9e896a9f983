package backend

import (
	"context"
	"sort"
	"strconv"
	"testing"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRoute53 stores record sets of a single hosted zone keyed by name.
type fakeRoute53 struct {
	route53iface.Route53API

	zones   []*route53.HostedZone
	sets    map[string]*route53.ResourceRecordSet
	changes []*route53.Change
	lists   int
}

func newFakeRoute53() *fakeRoute53 {
	return &fakeRoute53{
		zones: []*route53.HostedZone{
			{Id: aws.String("/hostedzone/Z1"), Name: aws.String("example.com.")},
			{Id: aws.String("/hostedzone/Z2"), Name: aws.String("internal.example.com."), Config: &route53.HostedZoneConfig{PrivateZone: aws.Bool(true)}},
		},
		sets: map[string]*route53.ResourceRecordSet{},
	}
}

func (f *fakeRoute53) put(name, rType string, values ...string) {
	rr := make([]*route53.ResourceRecord, 0, len(values))
	for _, v := range values {
		rr = append(rr, &route53.ResourceRecord{Value: aws.String(v)})
	}
	f.sets[name+" "+rType] = &route53.ResourceRecordSet{
		Name:            aws.String(name),
		Type:            aws.String(rType),
		TTL:             aws.Int64(300),
		ResourceRecords: rr,
	}
}

func (f *fakeRoute53) ListHostedZonesPagesWithContext(ctx aws.Context, input *route53.ListHostedZonesInput, fn func(*route53.ListHostedZonesOutput, bool) bool, opts ...request.Option) error {
	for i, z := range f.zones {
		if !fn(&route53.ListHostedZonesOutput{HostedZones: []*route53.HostedZone{z}}, i == len(f.zones)-1) {
			break
		}
	}
	return nil
}

func (f *fakeRoute53) ListHostedZonesByNameWithContext(ctx aws.Context, input *route53.ListHostedZonesByNameInput, opts ...request.Option) (*route53.ListHostedZonesByNameOutput, error) {
	out := &route53.ListHostedZonesByNameOutput{}
	for _, z := range f.zones {
		if aws.StringValue(z.Name) >= aws.StringValue(input.DNSName) {
			out.HostedZones = append(out.HostedZones, z)
			break
		}
	}
	return out, nil
}

func (f *fakeRoute53) ListResourceRecordSetsWithContext(ctx aws.Context, input *route53.ListResourceRecordSetsInput, opts ...request.Option) (*route53.ListResourceRecordSetsOutput, error) {
	f.lists++
	keys := make([]string, 0, len(f.sets))
	for k := range f.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := ""
	if input.StartRecordName != nil {
		start = aws.StringValue(input.StartRecordName)
		if input.StartRecordType != nil {
			start += " " + aws.StringValue(input.StartRecordType)
		}
	}
	limit, _ := strconv.Atoi(aws.StringValue(input.MaxItems))

	out := &route53.ListResourceRecordSetsOutput{}
	for _, k := range keys {
		if k < start {
			continue
		}
		if len(out.ResourceRecordSets) == limit {
			out.IsTruncated = aws.Bool(true)
			out.NextRecordName = f.sets[k].Name
			out.NextRecordType = f.sets[k].Type
			break
		}
		out.ResourceRecordSets = append(out.ResourceRecordSets, f.sets[k])
	}
	return out, nil
}

func (f *fakeRoute53) ChangeResourceRecordSetsWithContext(ctx aws.Context, input *route53.ChangeResourceRecordSetsInput, opts ...request.Option) (*route53.ChangeResourceRecordSetsOutput, error) {
	for _, c := range input.ChangeBatch.Changes {
		f.changes = append(f.changes, c)
		rrs := c.ResourceRecordSet
		key := aws.StringValue(rrs.Name) + " " + aws.StringValue(rrs.Type)
		switch aws.StringValue(c.Action) {
		case route53.ChangeActionUpsert:
			f.sets[key] = rrs
		case route53.ChangeActionDelete:
			delete(f.sets, key)
		}
	}
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func TestRoute53ListZonesSkipsPrivate(t *testing.T) {
	zones, err := NewRoute53(newFakeRoute53(), false, 100).ListZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, zones)

	zones, err = NewRoute53(newFakeRoute53(), true, 100).ListZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "internal.example.com"}, zones)
}

func TestRoute53DeployAppendsValues(t *testing.T) {
	fake := newFakeRoute53()
	m := NewManager(NewRoute53(fake, false, 100), 60, false)

	require.NoError(t, m.Deploy(context.Background(), wwwName, "tok1 tok2 tok1"))

	set := fake.sets["_acme-challenge.www.example.com TXT"]
	require.NotNil(t, set)
	assert.Equal(t, int64(60), aws.Int64Value(set.TTL))

	var values []string
	for _, r := range set.ResourceRecords {
		values = append(values, aws.StringValue(r.Value))
	}
	assert.Equal(t, []string{`"tok1"`, `"tok2"`}, values)
	assert.Len(t, fake.changes, 2, "a value already present is not written again")
}

func TestRoute53CleanPaginates(t *testing.T) {
	fake := newFakeRoute53()
	fake.put("a.example.com.", "A", "10.0.0.1")
	fake.put("_acme-challenge.www.example.com.", "TXT", `"one"`, `"two"`)
	fake.put("_acme-challenge.www2.example.com.", "TXT", `"three"`)
	fake.put("example.com.", "TXT", `"v=spf1 -all"`)
	fake.put("\\052.example.com.", "TXT", `"wild"`)

	p := NewRoute53(fake, false, 2)
	page, err := p.ListRecords(context.Background(), "example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, page.Next)

	n, err := NewManager(p, 300, false).Clean(context.Background(), wwwName)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Contains(t, fake.sets, "example.com. TXT")
	assert.Contains(t, fake.sets, "\\052.example.com. TXT")
	assert.Contains(t, fake.sets, "a.example.com. A")
	assert.NotContains(t, fake.sets, "_acme-challenge.www.example.com. TXT")
	assert.NotContains(t, fake.sets, "_acme-challenge.www2.example.com. TXT")
}

func TestRoute53ListRecordsNames(t *testing.T) {
	fake := newFakeRoute53()
	fake.put("example.com.", "TXT", `"apex"`)
	fake.put("\\052.example.com.", "TXT", `"wild"`)
	fake.put("_acme-challenge.example.com.", "TXT", `"a"`, `"b"`)

	page, err := NewRoute53(fake, false, 100).ListRecords(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.Empty(t, page.Next)
	assert.ElementsMatch(t, []model.Record{
		{ID: "example.com", Type: "TXT", Name: "@", Data: "apex", TTL: 300},
		{ID: "*.example.com", Type: "TXT", Name: "*", Data: "wild", TTL: 300},
		{ID: "_acme-challenge.example.com", Type: "TXT", Name: "_acme-challenge", Data: "a b", TTL: 300},
	}, page.Records)
}

func TestRoute53UnknownZone(t *testing.T) {
	_, err := NewRoute53(newFakeRoute53(), false, 100).ListRecords(context.Background(), "example.net", "")
	assert.Error(t, err)
}

func TestRoute53DeleteMissingSet(t *testing.T) {
	fake := newFakeRoute53()
	err := NewRoute53(fake, false, 100).DeleteRecord(context.Background(), "example.com", model.Record{Name: "_acme-challenge.www"})
	require.NoError(t, err)
	assert.Empty(t, fake.changes)
}
