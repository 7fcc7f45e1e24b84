package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket/layers"
)

// Transport layer type aliases to keep switch statements readable.
var (
	layersTCP   = layers.LayerTypeTCP
	layersUDP   = layers.LayerTypeUDP
	layersICMP4 = layers.LayerTypeICMPv4
	layersICMP6 = layers.LayerTypeICMPv6
)

// buildSummary renders one decoded IP frame as a display row. Non-IP frames
// produce nothing (they still count toward the totals).
func buildSummary(parser *FrameParser, frameLen int) (Summary, bool) {
	src, dst, ok := parser.AddrPair()
	if !ok {
		return Summary{}, false
	}

	protocol, info := describeTransport(parser)

	return Summary{
		Timestamp:   time.Now(),
		Source:      toAddrString(src),
		Destination: toAddrString(dst),
		Protocol:    protocol,
		Length:      frameLen,
		Info:        info,
	}, true
}

func describeTransport(parser *FrameParser) (protocol, info string) {
	switch parser.TransportLayer() {
	case layersTCP:
		return ProtocolTCP, fmt.Sprintf("%d -> %d [Seq=%d]",
			parser.TCP.SrcPort, parser.TCP.DstPort, parser.TCP.Seq)
	case layersUDP:
		return ProtocolUDP, fmt.Sprintf("%d -> %d [Len=%d]",
			parser.UDP.SrcPort, parser.UDP.DstPort, parser.UDP.Length)
	case layersICMP4:
		return ProtocolICMP, fmt.Sprintf("Type=%d Code=%d",
			parser.ICMP4.TypeCode.Type(), parser.ICMP4.TypeCode.Code())
	case layersICMP6:
		return ProtocolICMPv6, fmt.Sprintf("Type=%d Code=%d",
			parser.ICMP6.TypeCode.Type(), parser.ICMP6.TypeCode.Code())
	}

	if parser.IsIPv6() {
		return ProtocolIPv6, "Unknown L4"
	}
	return ProtocolIPv4, "Unknown L4"
}
