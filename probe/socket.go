package probe

import (
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/netscope/netscope/log"
)

const (
	protocolICMP   = "ip4:icmp"
	protocolICMPv6 = "ip6:ipv6-icmp"
)

var echoPayload = []byte("netscope")

// sessionIdentifier is the ICMP echo identifier for this process.
func sessionIdentifier() int {
	return os.Getpid() & 0xffff
}

// checkRawSocket opens and immediately closes a raw ICMP socket for the
// target's address family, surfacing privilege errors before a worker is
// spawned.
func checkRawSocket(target netip.Addr) error {
	conn, err := icmp.ListenPacket(listenNetwork(target), "")
	if err != nil {
		return err
	}
	return conn.Close()
}

func listenNetwork(target netip.Addr) string {
	if target.Is6() {
		return protocolICMPv6
	}
	return protocolICMP
}

// sendProbe issues a single echo request with the given TTL over a fresh raw
// socket and waits up to timeout for any inbound datagram on it. Any reply is
// attributed to the hop; Time-Exceeded payloads are not parsed to correlate
// the reply with the original probe, so stray ICMP traffic landing on the
// socket counts too.
func sendProbe(target netip.Addr, ttl uint8, seq uint16, timeout time.Duration) Result {
	failed := Result{TTL: ttl}

	conn, err := icmp.ListenPacket(listenNetwork(target), "")
	if err != nil {
		log.Tracef("probe ttl=%d: socket open failed: %s", ttl, err)
		return failed
	}
	defer conn.Close()

	msg := icmp.Message{
		Code: 0,
		Body: &icmp.Echo{
			ID:   sessionIdentifier(),
			Seq:  int(seq),
			Data: echoPayload,
		},
	}
	if target.Is6() {
		// Hop limit on the socket; the kernel computes the ICMPv6 checksum.
		msg.Type = ipv6.ICMPTypeEchoRequest
		if err := conn.IPv6PacketConn().SetHopLimit(int(ttl)); err != nil {
			log.Tracef("probe ttl=%d: set hop limit failed: %s", ttl, err)
			return failed
		}
	} else {
		msg.Type = ipv4.ICMPTypeEcho
		if err := conn.IPv4PacketConn().SetTTL(int(ttl)); err != nil {
			log.Tracef("probe ttl=%d: set ttl failed: %s", ttl, err)
			return failed
		}
	}

	// Marshal embeds the Internet checksum for IPv4.
	wire, err := msg.Marshal(nil)
	if err != nil {
		return failed
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return failed
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, &net.IPAddr{IP: target.AsSlice()}); err != nil {
		log.Tracef("probe ttl=%d: send failed: %s", ttl, err)
		return failed
	}

	buf := make([]byte, 1500)
	_, peer, err := conn.ReadFrom(buf)
	if err != nil {
		// Timeout or transient receive error; recorded as a lost probe.
		return failed
	}
	rtt := time.Since(start)

	responder := addrOfPeer(peer)
	return Result{
		TTL:       ttl,
		Responder: responder,
		RTT:       rtt,
		Succeeded: true,
		IsTarget:  responder == target,
	}
}

func addrOfPeer(peer net.Addr) netip.Addr {
	ipAddr, ok := peer.(*net.IPAddr)
	if !ok {
		return netip.Addr{}
	}
	addr, _ := netip.AddrFromSlice(ipAddr.IP)
	return addr.Unmap()
}
