package hook

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/acorn-io/dns01-hook/pkg/zones"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deployCall struct {
	name  model.ResolvedName
	token string
}

type fakeLifecycle struct {
	deploys   []deployCall
	cleans    []model.ResolvedName
	deployErr error
}

func (f *fakeLifecycle) Deploy(ctx context.Context, name model.ResolvedName, token string) error {
	if f.deployErr != nil {
		return f.deployErr
	}
	f.deploys = append(f.deploys, deployCall{name: name, token: token})
	return nil
}

func (f *fakeLifecycle) Clean(ctx context.Context, name model.ResolvedName) (int, error) {
	f.cleans = append(f.cleans, name)
	return 0, nil
}

func newTestRunner(lifecycle *fakeLifecycle, zoneNames ...string) (*Runner, *[]time.Duration, *int) {
	connects := 0
	r := NewRunner(func(ctx context.Context) (Lifecycle, Resolver, error) {
		connects++
		return lifecycle, zones.NewResolver(zones.NewDirectory(zoneNames), "", false), nil
	}, 10*time.Second)

	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept, &connects
}

func TestParseChallenges(t *testing.T) {
	reqs, err := ParseChallenges([]string{
		"example.com", "f1", "T1",
		"*.example.com", "f2", "T2",
		"www.example.org.", "f3", "T3",
		"EXAMPLE.com", "f4", "T4 T5",
	})
	require.NoError(t, err)

	assert.Equal(t, []model.ChallengeRequest{
		{Domain: "example.com", Tokens: []string{"T1", "T2", "T4", "T5"}},
		{Domain: "www.example.org", Tokens: []string{"T3"}},
	}, reqs)
}

func TestParseChallengesIncompleteTriple(t *testing.T) {
	_, err := ParseChallenges([]string{"example.com", "f1"})
	assert.Error(t, err)

	_, err = ParseChallenges([]string{"*.", "f1", "T"})
	assert.Error(t, err)
}

func TestDeployWildcardMatchesBaseDomain(t *testing.T) {
	wild := &fakeLifecycle{}
	r, _, _ := newTestRunner(wild, "example.com")
	require.NoError(t, r.Run(context.Background(), PhaseDeployChallenge, []string{"*.example.com", "f", "T"}))

	plain := &fakeLifecycle{}
	r, _, _ = newTestRunner(plain, "example.com")
	require.NoError(t, r.Run(context.Background(), PhaseDeployChallenge, []string{"example.com", "f", "T"}))

	assert.Equal(t, plain.deploys, wild.deploys)
	assert.Equal(t, []deployCall{{
		name:  model.ResolvedName{Zone: "example.com", RelativeName: "_acme-challenge"},
		token: "T",
	}}, plain.deploys)
}

func TestDeployMergesTokensAndWaitsOnce(t *testing.T) {
	lc := &fakeLifecycle{}
	r, slept, _ := newTestRunner(lc, "example.com", "example.org")

	require.NoError(t, r.Run(context.Background(), PhaseDeployChallenge, []string{
		"example.com", "f1", "T1",
		"www.example.org", "f2", "T3",
		"*.example.com", "f3", "T2",
	}))

	assert.Equal(t, []deployCall{
		{name: model.ResolvedName{Zone: "example.com", RelativeName: "_acme-challenge"}, token: "T1 T2"},
		{name: model.ResolvedName{Zone: "example.org", RelativeName: "_acme-challenge.www"}, token: "T3"},
	}, lc.deploys)
	assert.Equal(t, []time.Duration{10 * time.Second}, *slept)
}

func TestDeployFailureStopsBatch(t *testing.T) {
	boom := errors.New("boom")
	lc := &fakeLifecycle{deployErr: boom}
	r, slept, _ := newTestRunner(lc, "example.com")

	err := r.Run(context.Background(), PhaseDeployChallenge, []string{"a.example.com", "f", "T1", "b.example.com", "f", "T2"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, *slept)
}

func TestCleanEachDomain(t *testing.T) {
	lc := &fakeLifecycle{}
	r, slept, _ := newTestRunner(lc)

	require.NoError(t, r.Run(context.Background(), PhaseCleanChallenge, []string{
		"sub.unknown.tld", "f", "T1",
		"*.sub.unknown.tld", "f", "T2",
	}))

	assert.Equal(t, []model.ResolvedName{
		{Zone: "unknown.tld", RelativeName: "_acme-challenge.sub", Guessed: true},
	}, lc.cleans)
	assert.Empty(t, *slept)
}

func TestUnknownPhaseIsIgnored(t *testing.T) {
	lc := &fakeLifecycle{}
	r, _, connects := newTestRunner(lc)

	for _, phase := range []string{"startup_hook", "unchanged_cert", "this_hookscript_is_broken__dehydrated_is_working_fine__please_ignore_unknown_hooks"} {
		assert.NoError(t, r.Run(context.Background(), phase, []string{"x"}))
	}
	assert.Zero(t, *connects)
}

func TestConnectFailure(t *testing.T) {
	boom := errors.New("no token")
	r := NewRunner(func(ctx context.Context) (Lifecycle, Resolver, error) {
		return nil, nil, boom
	}, 0)

	assert.ErrorIs(t, r.Run(context.Background(), PhaseCleanChallenge, []string{"example.com", "f", "T"}), boom)
	assert.NoError(t, r.Run(context.Background(), PhaseCleanChallenge, nil), "nothing to do needs no provider")
}

func TestExecHooks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	script := filepath.Join(dir, "hook.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+out+"\necho done\n"), 0755))

	r, _, connects := newTestRunner(&fakeLifecycle{})
	var stdout bytes.Buffer
	r.Stdout = &stdout
	r.DeployCertHook = script

	require.NoError(t, r.Run(context.Background(), PhaseDeployCert, []string{"example.com", "/k.pem", "/c.pem"}))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "deploy_cert example.com /k.pem /c.pem\n", string(got))
	assert.Equal(t, "done\n", stdout.String())
	assert.Zero(t, *connects)

	// exit_hook has nothing configured
	require.NoError(t, r.Run(context.Background(), PhaseExitHook, nil))
}

func TestExecHookFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}

	script := filepath.Join(t.TempDir(), "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0755))

	r, _, _ := newTestRunner(&fakeLifecycle{})
	r.ExitHook = script
	assert.Error(t, r.Run(context.Background(), PhaseExitHook, nil))
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}
