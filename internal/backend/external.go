package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"apphost/internal/models"
	"apphost/internal/topology"
)

// ExternalBackend represents databases that run elsewhere. Nothing is
// started or stopped; the configured endpoint is reported as is.
type ExternalBackend struct{}

type externalHandle struct {
	name     string
	endpoint models.Endpoint
}

func (h externalHandle) Resource() string          { return h.name }
func (h externalHandle) Endpoint() models.Endpoint { return h.endpoint }
func (h externalHandle) Pid() int                  { return 0 }

func (ExternalBackend) Materialize(ctx context.Context, req Request) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := req.Descriptor
	ep, err := ParseEndpoint(d.GetString(topology.OptEndpoint))
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", d.Name(), err)
	}
	return externalHandle{name: d.Name(), endpoint: ep}, nil
}

func (ExternalBackend) Teardown(context.Context, Handle) error {
	return nil
}

// ParseEndpoint turns "scheme://host[:port]/" into an Endpoint, filling in
// the scheme's default port.
func ParseEndpoint(raw string) (models.Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return models.Endpoint{}, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return models.Endpoint{}, fmt.Errorf("endpoint %q needs a scheme and a host", raw)
	}
	ep := models.Endpoint{Scheme: u.Scheme, Host: u.Hostname()}
	switch p := u.Port(); {
	case p != "":
		if ep.Port, err = strconv.Atoi(p); err != nil {
			return models.Endpoint{}, fmt.Errorf("endpoint %q: bad port", raw)
		}
	case u.Scheme == "https":
		ep.Port = 443
	default:
		ep.Port = 80
	}
	return ep, nil
}
