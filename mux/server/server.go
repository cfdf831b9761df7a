package server

import (
	"fmt"
	"net"

	"github.com/machingclee/muxtcp/lib/sessionlog"
	"github.com/machingclee/muxtcp/mux/codec"
	"github.com/machingclee/muxtcp/mux/common"
	"github.com/machingclee/muxtcp/mux/conntab"
	"github.com/machingclee/muxtcp/mux/poller"
	"golang.org/x/sys/unix"
)

var Logger = common.GetLogger("server")

// DataObserverFunc is called for every payload a peer delivers. It runs on
// the control loop, so it must not block
type DataObserverFunc func(slot int, remoteAddr string, data []byte)

// Server is the multiplexed TCP server: one listening socket, a fixed
// capacity connection table and a readiness poller, all driven by a single
// control loop. There is no parallelism inside the loop, so the table needs
// no locking
type Server struct {
	config   common.ServerConfig
	codec    codec.IWireCodec
	table    *conntab.Table
	poll     poller.IPoller
	recorder *sessionlog.Recorder
	metrics  *serverMetrics
	observer DataObserverFunc

	// hello is the pre-encoded handshake written to every accepted peer
	hello []byte

	listenFD  int
	boundPort int
}

// NewServer creates a multiplexed server. The session recorder is optional;
// nil disables session logging
//
// Usage:
//
//	s, err := server.NewServer(config, codec.NewBinaryCodec(), nil)
//	if err != nil {
//		panic(err)
//	}
//	if err := s.Listen(); err != nil {
//		panic(err)
//	}
//	panic(s.Serve())
func NewServer(config common.ServerConfig, wire codec.IWireCodec, recorder *sessionlog.Recorder) (*Server, error) {
	table, err := conntab.NewTable(config.MaxPeers, config.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("create connection table: %w", err)
	}

	hello, err := wire.Serialize(common.NewHelloMessage())
	if err != nil {
		return nil, fmt.Errorf("encode handshake: %w", err)
	}

	return &Server{
		config:   config,
		codec:    wire,
		table:    table,
		recorder: recorder,
		metrics:  newServerMetrics(),
		hello:    hello,
		listenFD: -1,
	}, nil
}

// RegisterObserver registers a callback invoked with every received payload.
// It must be called before Serve
func (s *Server) RegisterObserver(fn DataObserverFunc) {
	s.observer = fn
}

// BoundPort returns the port the listener is actually bound to. It differs
// from the configured port only when port 0 was requested
func (s *Server) BoundPort() int {
	return s.boundPort
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// Listen creates the listening socket and the readiness poller. Every error
// on this path is fatal: the server cannot run without these resources
func (s *Server) Listen() error {
	addr, err := bindAddr(s.config.Host)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("create listening socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: s.config.Port, Addr: addr}); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("bind %s: %w", s.config.ListenAddr(), err)
	}

	if err := unix.Listen(fd, s.config.Backlog); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddr(), err)
	}

	// Resolve the actual port for the port-0 case
	sa, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("getsockname: %w", err)
	}
	if inet, ok := sa.(*unix.SockaddrInet4); ok {
		s.boundPort = inet.Port
	}

	poll, err := poller.NewPoller()
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("create poller: %w", err)
	}
	if err := poll.Add(fd); err != nil {
		_ = poll.Close()
		_ = unix.Close(fd)
		return fmt.Errorf("watch listening socket: %w", err)
	}

	s.listenFD = fd
	s.poll = poll

	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	Logger.Infof("Listening on %s:%d (max peers %d, backlog %d)", s.config.Host, s.boundPort, s.table.Cap(), s.config.Backlog)
	return nil
}

// --------------------------------------------------------------------------
// Control Loop
// --------------------------------------------------------------------------

// Serve runs the control loop: block on the poller, service the listening
// socket first, then every ready peer slot, forever. It returns only when
// the readiness wait fails, which is fatal to the whole server; every
// remaining peer connection is closed on the way out
func (s *Server) Serve() error {
	if s.listenFD < 0 {
		return fmt.Errorf("server is not listening, call Listen first")
	}

	// One extra slot for the listening socket
	events := make([]poller.Event, s.table.Cap()+1)

	for {
		n, err := s.poll.Wait(events)
		if err != nil {
			s.drainPeers()
			return fmt.Errorf("readiness wait: %w", err)
		}

		// The listening socket is always serviced before peers, so a burst
		// of simultaneous accept and peer activity admits new connections
		// before draining existing ones
		for _, ev := range events[:n] {
			if ev.FD == s.listenFD {
				s.handleAccept()
			}
		}

		for _, ev := range events[:n] {
			if ev.FD == s.listenFD {
				continue
			}
			idx, ok := s.table.FindByFD(ev.FD)
			if !ok {
				Logger.Warningf("Readiness reported for unknown fd %d", ev.FD)
				continue
			}
			s.handlePeer(idx)
		}
	}
}

// Close tears down the poller and the listening socket. A blocked Serve
// returns with an error afterwards
func (s *Server) Close() error {
	var err error
	if s.poll != nil {
		err = s.poll.Close()
	}
	if s.listenFD >= 0 {
		if cerr := unix.Close(s.listenFD); cerr != nil && err == nil {
			err = cerr
		}
		s.listenFD = -1
	}
	return err
}

// --------------------------------------------------------------------------
// Accept Handler
// --------------------------------------------------------------------------

// handleAccept consumes one readiness report of the listening socket. A
// failed accept abandons only that attempt; a full table rejects the new
// connection without touching any occupied slot
func (s *Server) handleAccept() {
	nfd, sa, err := unix.Accept(s.listenFD)
	if err != nil {
		Logger.Errorf("Accept failed: %v", err)
		s.metrics.acceptErrors.Inc()
		return
	}
	remote := sockaddrString(sa)

	idx, ok := s.table.FindFreeSlot()
	if !ok {
		Logger.Warningf("Server full, closing new connection from %s", remote)
		_ = unix.Close(nfd)
		s.metrics.rejections.Inc()
		s.record(sessionlog.EventRejected, "", remote)
		return
	}

	s.tuneSocket(nfd)

	p, err := s.table.Attach(idx, nfd, remote)
	if err != nil {
		Logger.Errorf("Failed to attach connection from %s: %v", remote, err)
		_ = unix.Close(nfd)
		return
	}

	// The handshake is written unconditionally upon accepting
	if n, err := unix.Write(nfd, s.hello); err != nil || n != len(s.hello) {
		Logger.Errorf("Failed to write handshake to %s: %v", remote, err)
		s.abortAccept(idx, p)
		return
	}

	if err := s.poll.Add(nfd); err != nil {
		Logger.Errorf("Failed to watch connection from %s: %v", remote, err)
		s.abortAccept(idx, p)
		return
	}

	Logger.Infof("New connection from %s (slot %d, conn %s)", remote, idx, p.ID())
	s.metrics.accepts.Inc()
	s.metrics.connActive.Add(1)
	s.record(sessionlog.EventConnected, p.ID().String(), remote)
}

// --------------------------------------------------------------------------
// Peer I/O Handler
// --------------------------------------------------------------------------

// handlePeer consumes one readiness report of an occupied slot: a single
// read of up to the slot buffer's capacity with exactly one outcome. Data
// is retained in the slot buffer and surfaced; end of stream or a read
// error frees the slot for reuse by the next accept
func (s *Server) handlePeer(idx int) {
	p, err := s.table.Peer(idx)
	if err != nil {
		Logger.Errorf("Peer dispatch failed: %v", err)
		return
	}

	n, err := unix.Read(p.FD(), p.Buffer())
	if err != nil {
		Logger.Warningf("Read error on %s (slot %d): %v", p.RemoteAddr(), idx, err)
		s.metrics.readErrors.Inc()
		s.releaseSlot(idx, p, true)
		return
	}
	if n == 0 {
		Logger.Infof("Client %s disconnected (slot %d)", p.RemoteAddr(), idx)
		s.releaseSlot(idx, p, true)
		return
	}

	data := p.Buffer()[:n]
	Logger.Infof("Received %d bytes from %s (slot %d): %s", n, p.RemoteAddr(), idx, string(data))

	s.metrics.bytesRead.Add(n)
	s.metrics.readRate.Mark(int64(n))
	s.metrics.readSizes.AddSample(n)

	if s.observer != nil {
		s.observer(idx, p.RemoteAddr(), data)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// releaseSlot removes the peer from the poller (when it was watched),
// closes its socket and frees the slot. Release frees the slot even when
// closing the socket fails, so the disconnect accounting always runs
func (s *Server) releaseSlot(idx int, p *conntab.Peer, watched bool) {
	connID := p.ID().String()
	remote := p.RemoteAddr()

	if watched {
		if err := s.poll.Remove(p.FD()); err != nil {
			Logger.Warningf("Failed to unwatch fd %d: %v", p.FD(), err)
		}
	}
	if err := s.table.Release(idx); err != nil {
		Logger.Errorf("Failed to release slot %d: %v", idx, err)
	}

	s.metrics.disconnects.Inc()
	s.metrics.connActive.Add(-1)
	s.record(sessionlog.EventDisconnected, connID, remote)
}

// abortAccept frees a slot whose connection setup failed after Attach but
// before the peer was counted as active. The peer never appeared in the
// accept metrics or the session log, so no disconnect accounting happens
func (s *Server) abortAccept(idx int, p *conntab.Peer) {
	Logger.Debugf("Aborting connection from %s (slot %d)", p.RemoteAddr(), idx)
	if err := s.table.Release(idx); err != nil {
		Logger.Errorf("Failed to release slot %d: %v", idx, err)
	}
	s.metrics.acceptErrors.Inc()
}

// drainPeers closes every remaining peer connection when the control loop
// exits. It runs on the loop goroutine, which still owns the table. The
// poller is already gone at this point, so the sockets are only closed
// and accounted, not unwatched
func (s *Server) drainPeers() {
	s.table.ForEachOccupied(func(idx int, p *conntab.Peer) {
		Logger.Infof("Closing connection to %s (slot %d)", p.RemoteAddr(), idx)
		connID := p.ID().String()
		remote := p.RemoteAddr()

		if err := s.table.Release(idx); err != nil {
			Logger.Errorf("Failed to release slot %d: %v", idx, err)
		}
		s.metrics.disconnects.Inc()
		s.metrics.connActive.Add(-1)
		s.record(sessionlog.EventDisconnected, connID, remote)
	})
}

// record forwards a session event to the recorder when one is configured
func (s *Server) record(eventType sessionlog.EventType, connID, remoteAddr string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(sessionlog.Event{
		Type:       eventType,
		ConnID:     connID,
		RemoteAddr: remoteAddr,
	})
}

// tuneSocket applies the configured TCP options to an accepted socket.
// Tuning failures are not fatal to the connection
func (s *Server) tuneSocket(fd int) {
	if s.config.TCP.TCPNoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			Logger.Warningf("Failed to set TCP_NODELAY: %v", err)
		}
	}
	if s.config.TCP.TCPKeepAliveSec > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			Logger.Warningf("Failed to set SO_KEEPALIVE: %v", err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, s.config.TCP.TCPKeepAliveSec); err != nil {
			Logger.Warningf("Failed to set TCP_KEEPIDLE: %v", err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, s.config.TCP.TCPKeepAliveSec); err != nil {
			Logger.Warningf("Failed to set TCP_KEEPINTVL: %v", err)
		}
	}
	if s.config.TCP.TCPLingerSec >= 0 {
		linger := &unix.Linger{Onoff: 1, Linger: int32(s.config.TCP.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, linger); err != nil {
			Logger.Warningf("Failed to set SO_LINGER: %v", err)
		}
	}
	if s.config.TCP.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, s.config.TCP.ReadBufferSize); err != nil {
			Logger.Warningf("Failed to set SO_RCVBUF: %v", err)
		}
	}
	if s.config.TCP.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, s.config.TCP.WriteBufferSize); err != nil {
			Logger.Warningf("Failed to set SO_SNDBUF: %v", err)
		}
	}
}

// bindAddr converts the configured host to a 4 byte IPv4 address. An empty
// host binds all interfaces
func bindAddr(host string) ([4]byte, error) {
	var addr [4]byte
	if host == "" {
		return addr, nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return addr, fmt.Errorf("invalid host address %q", host)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return addr, fmt.Errorf("host %q is not an IPv4 address", host)
	}
	copy(addr[:], ip4)
	return addr, nil
}

// sockaddrString formats a peer socket address as host:port
func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%s:%d", net.IP(a.Addr[:]).String(), a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Addr[:]).String(), a.Port)
	default:
		return "unknown"
	}
}
