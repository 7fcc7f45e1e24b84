package capture

import (
	"net"
	"net/netip"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netscope/netscope/netinfo"
)

var testInterface = netinfo.Interface{
	Name:  "test0",
	Index: 7,
	Up:    true,
	Prefixes: []netip.Prefix{
		netip.MustParsePrefix("192.168.1.42/24"),
	},
}

// fakeSource replays a fixed set of frames, then reports deadline expiry on
// every subsequent read.
type fakeSource struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeSource) ReadFrame(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		// Briefly simulate a quiet wire so the engine loop does not spin.
		time.Sleep(time.Millisecond)
		return 0, os.ErrDeadlineExceeded
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return copy(buf, frame), nil
}

func (f *fakeSource) SetReadDeadline(time.Time) error { return nil }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func stubLookup(t *testing.T) {
	t.Helper()
	orig := lookupInterface
	lookupInterface = func(name string) (netinfo.Interface, error) {
		if name == testInterface.Name {
			return testInterface, nil
		}
		return netinfo.Interface{}, &netinfo.NotFoundError{Name: name}
	}
	t.Cleanup(func() { lookupInterface = orig })
}

func tcpFrame(t *testing.T, src, dst string, srcPort, dstPort layers.TCPPort) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src),
		DstIP:    net.ParseIP(dst),
	}
	tcp := &layers.TCP{
		SrcPort: srcPort,
		DstPort: dstPort,
		Seq:     1000,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t,
		&layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		},
		ip, tcp, gopacket.Payload([]byte("data")),
	)
}

func udpFrame(t *testing.T, src, dst string) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src),
		DstIP:    net.ParseIP(dst),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 5353}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t,
		&layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		},
		ip, udp, gopacket.Payload([]byte("q")),
	)
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func runEngine(t *testing.T, cfg Config, frames [][]byte) (*Engine, []Summary) {
	t.Helper()
	stubLookup(t)

	e := NewEngine(cfg)
	e.open = func(netinfo.Interface) (FrameSource, error) {
		return &fakeSource{frames: frames}, nil
	}

	ch, err := e.Start()
	require.NoError(t, err)

	// Give the worker time to chew through the replayed frames, then stop.
	time.Sleep(50 * time.Millisecond)
	e.Stop()

	var got []Summary
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return e, got
			}
			got = append(got, s)
		case <-deadline:
			t.Fatal("engine did not close its channel after Stop")
		}
	}
}

func TestEngineClassifiesInboundLAN(t *testing.T) {
	// Destination is the bound address, source is inside its subnet.
	frame := tcpFrame(t, "192.168.1.10", "192.168.1.42", 443, 50000)
	e, got := runEngine(t, Config{Interface: "test0"}, [][]byte{frame})

	require.Len(t, got, 1)
	assert.Equal(t, ProtocolTCP, got[0].Protocol)
	assert.Equal(t, "192.168.1.10", got[0].Source)
	assert.Equal(t, "192.168.1.42", got[0].Destination)
	assert.Contains(t, got[0].Info, "[Seq=1000]")

	snap := e.Counters().Snapshot()
	assert.Equal(t, uint64(1), snap.TotalPackets)
	assert.Equal(t, uint64(1), snap.InboundPackets)
	assert.Equal(t, uint64(0), snap.OutboundPackets)
	assert.Equal(t, uint64(len(frame)), snap.LANInBytes)
	assert.Equal(t, uint64(0), snap.WANInBytes)
	assert.Equal(t, uint64(1), snap.TCPPackets)
}

func TestEngineClassifiesInboundWAN(t *testing.T) {
	// Destination is the bound address, source is outside every bound subnet.
	frame := tcpFrame(t, "8.8.8.8", "192.168.1.42", 443, 50000)
	e, _ := runEngine(t, Config{Interface: "test0"}, [][]byte{frame})

	snap := e.Counters().Snapshot()
	assert.Equal(t, uint64(1), snap.InboundPackets)
	assert.Equal(t, uint64(len(frame)), snap.WANInBytes)
	assert.Equal(t, uint64(0), snap.LANInBytes)
}

func TestEngineClassifiesOutboundWAN(t *testing.T) {
	frame := udpFrame(t, "192.168.1.42", "1.1.1.1")
	e, got := runEngine(t, Config{Interface: "test0"}, [][]byte{frame})

	require.Len(t, got, 1)
	assert.Equal(t, ProtocolUDP, got[0].Protocol)

	snap := e.Counters().Snapshot()
	assert.Equal(t, uint64(1), snap.OutboundPackets)
	assert.Equal(t, uint64(len(frame)), snap.WANOutBytes)
	assert.Equal(t, uint64(1), snap.UDPPackets)
}

func TestEngineFilterIsCaseInsensitive(t *testing.T) {
	frames := [][]byte{
		tcpFrame(t, "192.168.1.10", "192.168.1.42", 443, 50000),
		udpFrame(t, "192.168.1.42", "1.1.1.1"),
	}

	e, got := runEngine(t, Config{Interface: "test0", Filter: "uDp"}, frames)

	// Only the UDP summary is emitted...
	require.Len(t, got, 1)
	assert.Equal(t, ProtocolUDP, got[0].Protocol)

	// ...but counters saw every frame.
	snap := e.Counters().Snapshot()
	assert.Equal(t, uint64(2), snap.TotalPackets)
	assert.Equal(t, uint64(1), snap.TCPPackets)
	assert.Equal(t, uint64(1), snap.UDPPackets)
}

func TestEngineFilterMatchesAnyField(t *testing.T) {
	summary := Summary{
		Source:      "192.168.1.10",
		Destination: "10.0.0.1",
		Protocol:    "TCP",
		Info:        "443 -> 50000 [Seq=7]",
	}

	assert.True(t, matchesFilter(summary, ""))
	assert.True(t, matchesFilter(summary, "192.168"))
	assert.True(t, matchesFilter(summary, "10.0.0.1"))
	assert.True(t, matchesFilter(summary, "tcp"))
	assert.True(t, matchesFilter(summary, "seq=7"))
	assert.False(t, matchesFilter(summary, "udp"))
}

func TestEngineUnknownInterface(t *testing.T) {
	stubLookup(t)

	e := NewEngine(Config{Interface: "nope0"})
	ch, err := e.Start()
	require.Error(t, err)
	assert.Nil(t, ch)

	var notFound *netinfo.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestEngineOpenFailureEmitsSyntheticError(t *testing.T) {
	stubLookup(t)

	e := NewEngine(Config{Interface: "test0"})
	e.open = func(netinfo.Interface) (FrameSource, error) {
		return nil, os.ErrPermission
	}

	ch, err := e.Start()
	require.NoError(t, err)

	var got []Summary
	for s := range ch {
		got = append(got, s)
	}
	require.Len(t, got, 1)
	assert.Equal(t, ProtocolError, got[0].Protocol)
	assert.Contains(t, got[0].Info, "failed to open capture channel")
}
