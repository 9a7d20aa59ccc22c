package autofilter

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"time"
)

// adminServerTimeout bounds read/write on the admin server.
const adminServerTimeout = 10 * time.Second

// AdminListener serves the daemon's live expvar counters over plain HTTP.
// A QUIC/TLS transport isn't needed here: it only ever serves a local
// operator's curl or monitoring scrape.
type AdminListener struct {
	id         string
	addr       string
	httpServer *http.Server
	mux        *http.ServeMux
}

var _ Listener = &AdminListener{}

// NewAdminListener returns an admin listener exposing counters at
// /autofilter/vars.
func NewAdminListener(id, addr string) *AdminListener {
	mux := http.NewServeMux()
	mux.Handle("/autofilter/vars", expvar.Handler())
	return &AdminListener{id: id, addr: addr, mux: mux}
}

// Start runs the admin HTTP server, blocking until Stop is called or the
// listener fails.
func (s *AdminListener) Start() error {
	Log.WithFields(map[string]interface{}{"id": s.id, "addr": s.addr}).Info("starting admin listener")

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  adminServerTimeout,
		WriteTimeout: adminServerTimeout,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the admin server down gracefully.
func (s *AdminListener) Stop() error {
	Log.WithFields(map[string]interface{}{"id": s.id, "addr": s.addr}).Info("stopping admin listener")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(context.Background())
}

func (s *AdminListener) String() string {
	return s.id
}
