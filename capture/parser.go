package capture

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FrameParser decodes raw Ethernet frames with preallocated layer structs.
// One parser belongs to one goroutine.
type FrameParser struct {
	Eth    layers.Ethernet
	IP4    layers.IPv4
	IP6    layers.IPv6
	TCP    layers.TCP
	UDP    layers.UDP
	ICMP4  layers.ICMPv4
	ICMP6  layers.ICMPv6
	packet gopacket.Payload

	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewFrameParser builds a parser for Ethernet/IPv4/IPv6/TCP/UDP/ICMP frames.
func NewFrameParser() *FrameParser {
	p := &FrameParser{}
	p.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&p.Eth, &p.IP4, &p.IP6, &p.TCP, &p.UDP, &p.ICMP4, &p.ICMP6, &p.packet,
	)
	p.parser.IgnoreUnsupported = true
	return p
}

// Decode parses one frame. Unknown or truncated upper layers are not errors;
// the decoded-so-far layers stay accessible.
func (p *FrameParser) Decode(data []byte) error {
	return p.parser.DecodeLayers(data, &p.decoded)
}

func (p *FrameParser) hasLayer(t gopacket.LayerType) bool {
	for _, l := range p.decoded {
		if l == t {
			return true
		}
	}
	return false
}

// IsIPv4 reports whether the frame carried an IPv4 header.
func (p *FrameParser) IsIPv4() bool {
	return p.hasLayer(layers.LayerTypeIPv4)
}

// IsIPv6 reports whether the frame carried an IPv6 header.
func (p *FrameParser) IsIPv6() bool {
	return p.hasLayer(layers.LayerTypeIPv6)
}

// TransportLayer returns the decoded upper-layer type, or zero when only the
// network layer (or less) was understood.
func (p *FrameParser) TransportLayer() gopacket.LayerType {
	switch {
	case p.hasLayer(layers.LayerTypeTCP):
		return layers.LayerTypeTCP
	case p.hasLayer(layers.LayerTypeUDP):
		return layers.LayerTypeUDP
	case p.hasLayer(layers.LayerTypeICMPv4):
		return layers.LayerTypeICMPv4
	case p.hasLayer(layers.LayerTypeICMPv6):
		return layers.LayerTypeICMPv6
	default:
		return gopacket.LayerTypeZero
	}
}

// AddrPair returns the frame's network-layer source and destination.
func (p *FrameParser) AddrPair() (src, dst netip.Addr, ok bool) {
	switch {
	case p.IsIPv4():
		src, _ = netip.AddrFromSlice(p.IP4.SrcIP)
		dst, _ = netip.AddrFromSlice(p.IP4.DstIP)
	case p.IsIPv6():
		src, _ = netip.AddrFromSlice(p.IP6.SrcIP)
		dst, _ = netip.AddrFromSlice(p.IP6.DstIP)
	default:
		return netip.Addr{}, netip.Addr{}, false
	}
	return src.Unmap(), dst.Unmap(), true
}
