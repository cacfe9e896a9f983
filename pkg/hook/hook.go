package hook

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/sirupsen/logrus"
)

const (
	PhaseDeployChallenge = "deploy_challenge"
	PhaseCleanChallenge  = "clean_challenge"
	PhaseDeployCert      = "deploy_cert"
	PhaseExitHook        = "exit_hook"
)

// Lifecycle publishes and removes challenge records.
type Lifecycle interface {
	Deploy(ctx context.Context, name model.ResolvedName, token string) error
	Clean(ctx context.Context, name model.ResolvedName) (int, error)
}

type Resolver interface {
	Resolve(domain string) model.ResolvedName
}

// ConnectFunc sets up the provider side. It is only called for phases that
// touch DNS records, so other phases work without credentials.
type ConnectFunc func(ctx context.Context) (Lifecycle, Resolver, error)

type Runner struct {
	Connect ConnectFunc
	// Wait is slept after all challenges of a deploy are published.
	Wait           time.Duration
	DeployCertHook string
	ExitHook       string

	Stdout io.Writer
	Stderr io.Writer

	sleep func(ctx context.Context, d time.Duration) error
	log   *logrus.Entry
}

func NewRunner(connect ConnectFunc, wait time.Duration) *Runner {
	return &Runner{
		Connect: connect,
		Wait:    wait,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		sleep:   sleep,
		log:     logrus.WithField("component", "hook"),
	}
}

// Run executes one hook invocation. Phases it has no use for succeed without
// doing anything.
func (r *Runner) Run(ctx context.Context, phase string, args []string) error {
	log := r.log.WithField("phase", phase)

	switch phase {
	case PhaseDeployChallenge, PhaseCleanChallenge:
		requests, err := ParseChallenges(args)
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			log.Info("no challenges given")
			return nil
		}

		lifecycle, resolver, err := r.Connect(ctx)
		if err != nil {
			return err
		}

		if phase == PhaseDeployChallenge {
			return r.deploy(ctx, lifecycle, resolver, requests)
		}
		return r.clean(ctx, lifecycle, resolver, requests)
	case PhaseDeployCert:
		return r.exec(ctx, r.DeployCertHook, phase, args)
	case PhaseExitHook:
		return r.exec(ctx, r.ExitHook, phase, args)
	default:
		log.Debug("ignoring hook phase")
		return nil
	}
}

func (r *Runner) deploy(ctx context.Context, lifecycle Lifecycle, resolver Resolver, requests []model.ChallengeRequest) error {
	for _, req := range requests {
		name := resolver.Resolve(req.Domain)
		r.log.WithField("domain", req.Domain).Infof("deploying %d challenge token(s) to %s", len(req.Tokens), name)
		if err := lifecycle.Deploy(ctx, name, req.Token()); err != nil {
			return fmt.Errorf("deploying challenge for %s: %w", req.Domain, err)
		}
	}

	if r.Wait > 0 {
		r.log.Infof("waiting %s for DNS propagation", r.Wait)
		return r.sleep(ctx, r.Wait)
	}
	return nil
}

func (r *Runner) clean(ctx context.Context, lifecycle Lifecycle, resolver Resolver, requests []model.ChallengeRequest) error {
	for _, req := range requests {
		name := resolver.Resolve(req.Domain)
		n, err := lifecycle.Clean(ctx, name)
		if err != nil {
			return fmt.Errorf("cleaning challenge for %s: %w", req.Domain, err)
		}
		r.log.WithField("domain", req.Domain).Infof("deleted %d challenge record(s) from %s", n, name)
	}
	return nil
}

// exec runs a user supplied hook with the invocation's phase and arguments
// unchanged.
func (r *Runner) exec(ctx context.Context, script, phase string, args []string) error {
	if script == "" {
		r.log.WithField("phase", phase).Debug("no hook configured")
		return nil
	}

	cmd := exec.CommandContext(ctx, script, append([]string{phase}, args...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.log.WithField("phase", phase).Infof("running %s", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s hook %s failed: %w", phase, script, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
