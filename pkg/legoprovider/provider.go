// Package legoprovider lets programs built on lego solve DNS-01 challenges
// with the hook's zone resolution and record lifecycle.
package legoprovider

import (
	"context"
	"time"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"

	"github.com/acorn-io/dns01-hook/pkg/hook"
)

var (
	_ challenge.Provider        = (*Provider)(nil)
	_ challenge.ProviderTimeout = (*Provider)(nil)
)

const defaultInterval = 5 * time.Second

type Provider struct {
	lifecycle hook.Lifecycle
	resolver  hook.Resolver
	timeout   time.Duration
}

// New returns a provider. timeout bounds how long lego waits for the record
// to propagate; zero keeps lego's default.
func New(lifecycle hook.Lifecycle, resolver hook.Resolver, timeout time.Duration) *Provider {
	return &Provider{
		lifecycle: lifecycle,
		resolver:  resolver,
		timeout:   timeout,
	}
}

func (p *Provider) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	name := p.resolver.Resolve(hook.NormalizeDomain(domain))
	return p.lifecycle.Deploy(context.Background(), name, info.Value)
}

func (p *Provider) CleanUp(domain, token, keyAuth string) error {
	name := p.resolver.Resolve(hook.NormalizeDomain(domain))
	_, err := p.lifecycle.Clean(context.Background(), name)
	return err
}

func (p *Provider) Timeout() (timeout, interval time.Duration) {
	if p.timeout <= 0 {
		return dns01.DefaultPropagationTimeout, dns01.DefaultPollingInterval
	}
	return p.timeout, defaultInterval
}
