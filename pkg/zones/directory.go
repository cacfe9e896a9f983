package zones

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Lister returns every zone hosted by a provider account.
type Lister interface {
	ListZones(ctx context.Context) ([]string, error)
}

// Directory is the set of hosted zones known for a run. Zones are kept in
// match order: a zone always precedes every zone it is a subdomain of.
type Directory struct {
	zones []string
	root  *node
}

// node is one label of the reversed-label tree. zone is set when the path
// from the root to this node spells a hosted zone.
type node struct {
	children map[string]*node
	zone     string
}

// Load builds the directory from zonesFile when it is set, and from the
// provider otherwise.
func Load(ctx context.Context, zonesFile string, lister Lister) (*Directory, error) {
	if zonesFile != "" {
		names, err := ReadFile(zonesFile)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("loaded %d zones from %s", len(names), zonesFile)
		return NewDirectory(names), nil
	}

	if lister == nil {
		return nil, fmt.Errorf("no zones file configured and no provider to list zones from")
	}

	names, err := lister.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	logrus.Debugf("provider returned %d zones", len(names))

	return NewDirectory(names), nil
}

// ReadFile reads a zone list, one zone per line. Blank lines and lines
// starting with # are skipped.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading zones file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading zones file %s: %w", path, err)
	}

	return names, nil
}

func NewDirectory(names []string) *Directory {
	set := sets.NewString()
	for _, name := range names {
		if z := Normalize(name); z != "" {
			set.Insert(z)
		}
	}

	zones := set.List()
	sort.SliceStable(zones, func(i, j int) bool {
		return moreSpecific(zones[i], zones[j])
	})

	d := &Directory{
		zones: zones,
		root:  &node{},
	}
	for _, z := range zones {
		d.insert(z)
	}

	return d
}

// Normalize lower-cases a zone name and strips surrounding space and the
// trailing dot. The root zone normalizes to "".
func Normalize(zone string) string {
	zone = strings.TrimSpace(zone)
	if zone == "" || zone == "." {
		return ""
	}
	return strings.TrimSuffix(dns.CanonicalName(zone), ".")
}

// Zones returns the zones in match order.
func (d *Directory) Zones() []string {
	out := make([]string, len(d.zones))
	copy(out, d.zones)
	return out
}

func (d *Directory) Len() int {
	return len(d.zones)
}

// Match finds the longest hosted zone that hostname ends with and returns it
// together with the labels in front of it.
func (d *Directory) Match(hostname string) (zone, relative string, ok bool) {
	labels := dns.SplitDomainName(hostname)

	n := d.root
	best := -1
	for i := len(labels) - 1; i >= 0; i-- {
		child, found := n.children[strings.ToLower(labels[i])]
		if !found {
			break
		}
		n = child
		if n.zone != "" {
			best = i
			zone = n.zone
		}
	}

	if best < 0 {
		return "", "", false
	}

	return zone, strings.Join(labels[:best], "."), true
}

func (d *Directory) insert(zone string) {
	labels := dns.SplitDomainName(zone)

	n := d.root
	for i := len(labels) - 1; i >= 0; i-- {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[labels[i]]
		if !ok {
			child = &node{}
			n.children[labels[i]] = child
		}
		n = child
	}
	n.zone = zone
}

// moreSpecific orders zones by their labels read right to left. When one
// zone's labels are a suffix of the other's, the longer zone comes first.
func moreSpecific(a, b string) bool {
	la, lb := dns.SplitDomainName(a), dns.SplitDomainName(b)
	for i, j := len(la)-1, len(lb)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if la[i] != lb[j] {
			return la[i] < lb[j]
		}
	}
	return len(la) > len(lb)
}
