package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/acorn-io/dns01-hook/pkg/hook"
	"github.com/acorn-io/dns01-hook/pkg/legoprovider"
	"github.com/acorn-io/dns01-hook/pkg/model"
	"github.com/acorn-io/dns01-hook/pkg/version"
)

// Resolver resolves both bare domains and full challenge record names.
type Resolver interface {
	hook.Resolver
	ResolveFQDN(fqdn string) model.ResolvedName
}

type handler struct {
	// lock serializes record changes the way sequential hook runs would.
	lock      sync.Mutex
	lifecycle hook.Lifecycle
	resolver  Resolver
	raw       *legoprovider.Provider
}

func newHandler(lifecycle hook.Lifecycle, resolver Resolver) *handler {
	return &handler{
		lifecycle: lifecycle,
		resolver:  resolver,
		raw:       legoprovider.New(lifecycle, resolver, 0),
	}
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (h *handler) present(w http.ResponseWriter, r *http.Request) {
	input, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if input.FQDN == "" {
		if err := h.raw.Present(input.Domain, input.Token, input.KeyAuth); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, model.PresentResponse{
			ResolvedName: h.resolver.Resolve(hook.NormalizeDomain(input.Domain)),
			Records:      1,
		})
		return
	}

	name := h.resolver.ResolveFQDN(input.FQDN)
	if err := h.lifecycle.Deploy(r.Context(), name, input.Value); err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("presenting %s: %w", input.FQDN, err))
		return
	}
	writeJSON(w, http.StatusOK, model.PresentResponse{ResolvedName: name, Records: 1})
}

func (h *handler) cleanup(w http.ResponseWriter, r *http.Request) {
	input, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	var name model.ResolvedName
	if input.FQDN == "" {
		name = h.resolver.Resolve(hook.NormalizeDomain(input.Domain))
	} else {
		name = h.resolver.ResolveFQDN(input.FQDN)
	}

	n, err := h.lifecycle.Clean(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("cleaning up %s: %w", name.FQDN(), err))
		return
	}
	writeJSON(w, http.StatusOK, model.PresentResponse{ResolvedName: name, Records: n})
}

func decodeRequest(r *http.Request) (model.PresentRequest, error) {
	var input model.PresentRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return input, fmt.Errorf("decoding request: %w", err)
	}

	switch {
	case input.FQDN != "":
		if input.Value == "" {
			return input, errors.New("value must be provided with fqdn")
		}
	case input.Domain != "":
		if input.KeyAuth == "" {
			return input, errors.New("keyAuth must be provided with domain")
		}
	default:
		return input, errors.New("either fqdn or domain must be provided")
	}
	return input, nil
}
