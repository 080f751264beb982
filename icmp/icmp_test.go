package icmp

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xicmp "golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/BigDEM0N/net-work-lab/buffer"
	"github.com/BigDEM0N/net-work-lab/checksum"
	"github.com/BigDEM0N/net-work-lab/ip"
	"github.com/BigDEM0N/net-work-lab/metrics"
)

var (
	local  = netip.MustParseAddr("10.0.0.1")
	remote = netip.MustParseAddr("10.0.0.2")
)

type sent struct {
	b     []byte
	dst   netip.Addr
	proto uint8
}

type networkRecorder struct {
	sent []sent
}

func (n *networkRecorder) Transmit(buf *buffer.Buffer, dst netip.Addr, proto uint8) error {
	n.sent = append(n.sent, sent{append([]byte(nil), buf.Bytes()...), dst, proto})
	return nil
}

func udpFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	ipl := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(remote.AsSlice()),
		DstIP:    net.IP(local.AsSlice()),
	}
	udpl := &layers.UDP{SrcPort: 4000, DstPort: 7}
	require.NoError(t, udpl.SetNetworkLayerForChecksum(ipl))
	sb := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(sb, opts, ipl, udpl, gopacket.Payload(payload)))
	return append([]byte(nil), sb.Bytes()...)
}

func TestNotifyUnreachableQuotesHeaderAndEightBytes(t *testing.T) {
	n := &networkRecorder{}
	m := metrics.New(prometheus.NewRegistry())
	p := New(n, m)

	frame := udpFrame(t, []byte("a payload longer than eight bytes"))
	require.NoError(t, p.NotifyUnreachable(buffer.Wrap(frame), remote, CodePortUnreachable))

	require.Len(t, n.sent, 1)
	assert.Equal(t, remote, n.sent[0].dst)
	assert.Equal(t, ip.ProtocolICMP, n.sent[0].proto)
	assert.Equal(t, uint16(0), checksum.Checksum(n.sent[0].b))

	msg, err := xicmp.ParseMessage(int(ip.ProtocolICMP), n.sent[0].b)
	require.NoError(t, err)
	assert.Equal(t, ipv4.ICMPTypeDestinationUnreachable, msg.Type)
	assert.Equal(t, int(CodePortUnreachable), msg.Code)
	body, ok := msg.Body.(*xicmp.DstUnreach)
	require.True(t, ok)
	assert.Equal(t, frame[:ip.HeaderLen+8], body.Data)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ICMPOut.WithLabelValues(ipv4.ICMPTypeDestinationUnreachable.String())))
}

func TestNotifyUnreachableShortQuote(t *testing.T) {
	n := &networkRecorder{}
	p := New(n, metrics.New(prometheus.NewRegistry()))

	frame := udpFrame(t, nil)[:ip.HeaderLen+4]
	require.NoError(t, p.NotifyUnreachable(buffer.Wrap(frame), remote, CodePortUnreachable))

	msg, err := xicmp.ParseMessage(int(ip.ProtocolICMP), n.sent[0].b)
	require.NoError(t, err)
	assert.Equal(t, frame, msg.Body.(*xicmp.DstUnreach).Data)

	err = p.NotifyUnreachable(buffer.Wrap(frame[:10]), remote, CodePortUnreachable)
	assert.ErrorIs(t, err, errTruncated)
}

func TestEchoRequestIsAnsweredInPlace(t *testing.T) {
	n := &networkRecorder{}
	m := metrics.New(prometheus.NewRegistry())
	p := New(n, m)

	req := xicmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &xicmp.Echo{ID: 0x1234, Seq: 7, Data: []byte("ping")},
	}
	b, err := req.Marshal(nil)
	require.NoError(t, err)

	p.HandleInbound(buffer.New(ip.HeaderLen, b), remote)

	require.Len(t, n.sent, 1)
	assert.Equal(t, remote, n.sent[0].dst)
	assert.Equal(t, uint16(0), checksum.Checksum(n.sent[0].b))
	reply, err := xicmp.ParseMessage(int(ip.ProtocolICMP), n.sent[0].b)
	require.NoError(t, err)
	assert.Equal(t, ipv4.ICMPTypeEchoReply, reply.Type)
	echo := reply.Body.(*xicmp.Echo)
	assert.Equal(t, 0x1234, echo.ID)
	assert.Equal(t, 7, echo.Seq)
	assert.Equal(t, []byte("ping"), echo.Data)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ICMPIn.WithLabelValues(ipv4.ICMPTypeEcho.String())))
}

func TestMalformedMessageIsDropped(t *testing.T) {
	n := &networkRecorder{}
	p := New(n, metrics.New(prometheus.NewRegistry()))

	req := xicmp.Message{Type: ipv4.ICMPTypeEcho, Body: &xicmp.Echo{ID: 1, Seq: 1}}
	b, err := req.Marshal(nil)
	require.NoError(t, err)
	b[len(b)-1] ^= 0xff

	p.HandleInbound(buffer.New(ip.HeaderLen, b), remote)
	p.HandleInbound(buffer.New(ip.HeaderLen, []byte{8}), remote)
	assert.Empty(t, n.sent)
}

func TestRegisterAnswersUnknownProtocol(t *testing.T) {
	link := &frameRecorder{}
	m := metrics.New(prometheus.NewRegistry())
	l, err := ip.NewLayer(netip.MustParsePrefix("10.0.0.1/24"), link, m)
	require.NoError(t, err)
	New(l, m).Register(l)

	ipl := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP(remote.AsSlice()),
		DstIP:    net.IP(local.AsSlice()),
	}
	sb := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(sb, opts, ipl, gopacket.Payload(make([]byte, 20))))
	l.Input(append([]byte(nil), sb.Bytes()...))

	require.Len(t, link.frames, 1)
	pkt := gopacket.NewPacket(link.frames[0], layers.LayerTypeIPv4, gopacket.Default)
	icmpl, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	require.True(t, ok)
	assert.Equal(t, uint8(layers.ICMPv4TypeDestinationUnreachable), icmpl.TypeCode.Type())
	assert.Equal(t, uint8(layers.ICMPv4CodeProtocol), icmpl.TypeCode.Code())
}

type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) Write(b []byte) (int, error) {
	r.frames = append(r.frames, append([]byte(nil), b...))
	return len(b), nil
}
