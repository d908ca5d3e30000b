package rtspproxy

import (
	"errors"

	"github.com/djwackey/dorps/config"
)

// ErrNoUpstreamConfig means the hosting server supplied no upstream target;
// the connection cannot proceed and must be closed.
var ErrNoUpstreamConfig = errors.New("no upstream configuration for this connection")

// Session owns the upstream client handle for one downstream connection's
// lifetime. It is never shared across connections and never persisted.
type Session struct {
	URI    string
	Config *config.UpstreamConf
	Client UpstreamClient
}

// DialFunc constructs the upstream client bound to the media uri and the
// upstream configuration.
type DialFunc func(uri string, cfg *config.UpstreamConf) UpstreamClient

// Registry holds at most one Session. Each downstream connection owns its
// own Registry value; there is no server-wide session state.
type Registry struct {
	session *Session
}

// GetOrCreate returns the connection's session, creating it on the first
// request. The uri of later requests is ignored; the uri bound at creation
// stays authoritative for the rest of the connection.
func (r *Registry) GetOrCreate(cfg *config.UpstreamConf, uri string, dial DialFunc) (*Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	if cfg == nil {
		return nil, ErrNoUpstreamConfig
	}

	r.session = &Session{
		URI:    uri,
		Config: cfg,
		Client: dial(uri, cfg),
	}
	return r.session, nil
}

func (r *Registry) Session() *Session {
	return r.session
}
