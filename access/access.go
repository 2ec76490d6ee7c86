// Package access decides whether a visitor may open the invitation and
// which name to greet them with.
package access

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/grtshw/wedding-invitation/store"
	"github.com/rs/zerolog"
)

// Query parameter names. Name aliases are checked in order.
const (
	ParamID = "u"
)

var NameParams = []string{"to", "guest"}

// Params identify the visitor. ID takes precedence over Name.
type Params struct {
	ID   string
	Name string
}

// ParamsFromQuery reads Params from URL query values.
func ParamsFromQuery(q url.Values) Params {
	p := Params{ID: strings.TrimSpace(q.Get(ParamID))}
	for _, key := range NameParams {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			p.Name = v
			break
		}
	}
	return p
}

// Result is the outcome of one resolution.
type Result struct {
	Authorized bool
	// Name is the stored guest name, never the caller's spelling.
	Name    string
	GuestID string
}

// Resolver looks guests up through the store.
type Resolver struct {
	guests store.GuestReader
	log    zerolog.Logger
}

// NewResolver returns a Resolver reading from guests.
func NewResolver(guests store.GuestReader, log zerolog.Logger) *Resolver {
	return &Resolver{guests: guests, log: log}
}

// Resolve applies id, then name, then deny. Lookup errors deny access.
func (r *Resolver) Resolve(ctx context.Context, p Params) Result {
	switch {
	case p.ID != "":
		g, err := r.guests.FindGuestByID(ctx, p.ID)
		if err != nil {
			r.logFailure(err, "id")
			return Result{}
		}
		return Result{Authorized: true, Name: g.Name, GuestID: g.ID}
	case p.Name != "":
		g, err := r.guests.FindGuestByName(ctx, p.Name)
		if err != nil {
			r.logFailure(err, "name")
			return Result{}
		}
		return Result{Authorized: true, Name: g.Name, GuestID: g.ID}
	default:
		return Result{}
	}
}

func (r *Resolver) logFailure(err error, by string) {
	if errors.Is(err, store.ErrNotFound) {
		r.log.Debug().Str("by", by).Msg("guest not found")
		return
	}
	r.log.Warn().Err(err).Str("by", by).Msg("guest lookup failed")
}
