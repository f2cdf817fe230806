package transport

import (
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"

	vsync "github.com/cuemby/vaultd/pkg/sync"
	"github.com/cuemby/vaultd/pkg/vaultlog"
)

// HandleFunc answers an incoming exchange request from deviceID: given
// its deltas, return the local deltas to send back.
type HandleFunc func(deviceID string, in vsync.Envelope) (vsync.Envelope, error)

// Server accepts incoming sync connections from paired devices on the
// local network.
type Server struct {
	listener net.Listener
	keys     KeyProvider
	handle   HandleFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]uint64
}

// Listen starts a Server bound to address (e.g. ":7391"). Call Serve to
// start accepting connections.
func Listen(address string, keys KeyProvider, handle HandleFunc) (*Server, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		keys:     keys,
		handle:   handle,
		logger:   vaultlog.WithComponent("transport_server"),
		lastSeen: make(map[string]uint64),
	}, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Close is called. It always returns a
// non-nil error.
func (s *Server) Serve() error {
	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("transport server listening")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error().Err(err).Msg("accept failed")
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	idFrame, err := readFrame(conn)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read device id frame")
		return
	}
	deviceID := string(idFrame)
	logger := s.logger.With().Str("device_id", deviceID).Logger()

	secret, err := s.keys.SharedSecret(deviceID)
	if err != nil {
		logger.Warn().Err(err).Msg("no shared secret for peer, refusing exchange")
		return
	}

	s.mu.Lock()
	lastSeen := s.lastSeen[deviceID]
	s.mu.Unlock()

	in, counter, err := recvEnvelope(conn, secret, lastSeen)
	if err != nil {
		logger.Warn().Err(err).Msg("receive envelope")
		return
	}
	s.mu.Lock()
	s.lastSeen[deviceID] = counter
	s.mu.Unlock()

	out, err := s.handle(deviceID, in)
	if err != nil {
		logger.Error().Err(err).Msg("handle exchange")
		return
	}

	// The reply reuses the client's counter plus one rather than a
	// separate server-side sequence; the client checks it only against
	// the last counter it accepted from this server.
	if err := sendEnvelope(conn, secret, counter+1, out); err != nil {
		logger.Warn().Err(err).Msg("send envelope")
		return
	}
}
