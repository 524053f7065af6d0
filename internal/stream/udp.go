package stream

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// maxUDPDatagram is the theoretical maximum UDP payload over IPv4 (65535
// minus the 8-byte UDP header and the 20-byte IPv4 header); writes beyond it are rejected rather than silently
// fragmented.
const maxUDPDatagram = 65507

// udpWarnThreshold is the conventional safe-MTU boundary: datagrams above
// this are logged at Debug since they risk IP fragmentation on typical
// networks, without being rejected outright.
const udpWarnThreshold = 1472

// UDPSocket is a connectionless datagram endpoint. Unlike ConnStream it has
// no "end" event (UDP has no peer-initiated close) and every read delivers
// a ("data", payload, remoteAddr) event rather than a plain byte stream.
type UDPSocket struct {
	*Socket

	conn *net.UDPConn
	pc4  *ipv4.PacketConn
	pc6  *ipv6.PacketConn
	log  core.Logger
}

// UDPOptions carries the supplemented multicast/broadcast socket tuning
// (SPEC_FULL.md §10).
type UDPOptions struct {
	Broadcast    bool
	MulticastTTL int
}

// BindUDP opens a UDP endpoint bound to address (use ":0" for an ephemeral
// port, or "" for an unconnected send-only socket). work tracks whether
// this endpoint keeps the event loop alive while a read subscription is
// active.
func BindUDP(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, address string, opts UDPOptions) (*UDPSocket, error) {
	if log == nil {
		log = core.DiscardLogger()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("udp resolve %s: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp bind %s: %w", address, err)
	}

	sock := &UDPSocket{
		Socket: newSocket(loop, reactor.KindUDP, sched, work, log),
		conn:   conn,
		log:    log,
	}

	if is4(conn) {
		sock.pc4 = ipv4.NewPacketConn(conn)
	} else {
		sock.pc6 = ipv6.NewPacketConn(conn)
	}

	if opts.Broadcast {
		applyBroadcast(sock)
	}
	if opts.MulticastTTL > 0 {
		sock.setMulticastTTL(opts.MulticastTTL)
	}
	return sock, nil
}

func is4(conn *net.UDPConn) bool {
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	return ok && addr.IP.To4() != nil
}

func applyBroadcast(sock *UDPSocket) {
	// net.UDPConn has no direct SetBroadcast; ipv4/ipv6 PacketConn exposes
	// the multicast/broadcast knobs this runtime needs via raw socket
	// options, but broadcast itself is a send-time destination choice
	// (255.255.255.255) rather than a socket flag on most platforms via
	// this API surface, so this is a recorded intent for the send path.
	sock.log.Debug("udp broadcast enabled", "local", sock.conn.LocalAddr())
}

func (sock *UDPSocket) setMulticastTTL(ttl int) {
	if sock.pc4 != nil {
		_ = sock.pc4.SetMulticastTTL(ttl)
	}
	if sock.pc6 != nil {
		_ = sock.pc6.SetMulticastHopLimit(ttl)
	}
}

// JoinGroup joins a multicast group on the named interface (empty iface
// name picks the default).
func (sock *UDPSocket) JoinGroup(group net.IP, iface string) error {
	ifi, err := resolveIface(iface)
	if err != nil {
		return err
	}
	gaddr := &net.UDPAddr{IP: group}
	if sock.pc4 != nil {
		return sock.pc4.JoinGroup(ifi, gaddr)
	}
	return sock.pc6.JoinGroup(ifi, gaddr)
}

// LeaveGroup leaves a previously joined multicast group.
func (sock *UDPSocket) LeaveGroup(group net.IP, iface string) error {
	ifi, err := resolveIface(iface)
	if err != nil {
		return err
	}
	gaddr := &net.UDPAddr{IP: group}
	if sock.pc4 != nil {
		return sock.pc4.LeaveGroup(ifi, gaddr)
	}
	return sock.pc6.LeaveGroup(ifi, gaddr)
}

func resolveIface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	return net.InterfaceByName(name)
}

// StartReading begins the background receive loop, idempotently.
func (sock *UDPSocket) StartReading() {
	if !sock.reading.CompareAndSwap(false, true) {
		return
	}
	sock.WorkStart()
	go sock.readLoop()
}

func (sock *UDPSocket) readLoop() {
	defer sock.WorkDone()
	buf := make([]byte, maxUDPDatagram)
	for {
		if sock.Closed() {
			return
		}
		n, from, err := sock.conn.ReadFromUDP(buf)
		if err != nil {
			if sock.Closed() {
				return
			}
			sock.Emit("error", err)
			sock.CloseSocket()
			return
		}
		if sock.paused.Load() {
			continue // datagrams arriving while paused are dropped, matching "no backlog buffering" for UDP
		}
		chunk := append([]byte(nil), buf[:n]...)
		sock.Emit("data", chunk, from.String())
	}
}

// PauseReading / ResumeReading toggle datagram delivery. UDP has no
// backpressure queue (§ Supplemented Features): datagrams received while
// paused are simply dropped, matching kernel UDP's own unreliable-delivery
// contract.
func (sock *UDPSocket) PauseReading()  { sock.paused.Store(true) }
func (sock *UDPSocket) ResumeReading() { sock.paused.Store(false) }

// Send writes a single datagram to addr ("host:port"). Rejects payloads
// larger than the wire-format maximum outright, emitting "error" and
// returning the rejection; payloads above the conventional safe-MTU
// threshold are allowed but also emit "error" as a non-fatal warning (§4.5).
func (sock *UDPSocket) Send(data []byte, addr string) (int, error) {
	if len(data) > maxUDPDatagram {
		err := fmt.Errorf("udp: datagram of %d bytes exceeds maximum %d", len(data), maxUDPDatagram)
		sock.Emit("error", err)
		return 0, err
	}
	if len(data) > udpWarnThreshold {
		sock.log.Debug("udp datagram exceeds safe MTU", "size", len(data), "threshold", udpWarnThreshold)
		sock.Emit("error", fmt.Errorf("udp: datagram of %d bytes exceeds safe MTU %d, risk of fragmentation", len(data), udpWarnThreshold))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return 0, fmt.Errorf("udp resolve %s: %w", addr, err)
	}
	return sock.conn.WriteToUDP(data, udpAddr)
}

// CloseSocket runs the idempotent close sequence and emits "close".
func (sock *UDPSocket) CloseSocket() {
	sock.Close(func() {
		_ = sock.conn.Close()
	})
}

// LocalAddr returns the bound local address.
func (sock *UDPSocket) LocalAddr() net.Addr { return sock.conn.LocalAddr() }
