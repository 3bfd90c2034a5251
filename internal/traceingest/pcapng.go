package traceingest

import (
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/shuckc/pytexalarm/internal/wintex"
)

// IngestPcapNG reads a pcapng capture from r and dispatches each TCP
// segment's payload on udlPort by direction: traffic toward udlPort feeds
// passwordSession (client->server carries the login password), traffic
// from udlPort feeds panelSession (server->client carries panel replies).
//
// This assumes one UDL frame does not straddle a TCP segment boundary; the
// framer tolerates partial frames regardless; if that assumption is lifted
// elsewhere nothing here needs to change.
func IngestPcapNG(r io.Reader, udlPort int, panelSession, passwordSession *wintex.Session) error {
	reader, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return fmt.Errorf("traceingest: open pcapng: %w", err)
	}

	for {
		data, _, err := reader.ReadPacketData()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("traceingest: read packet: %w", err)
		}
		dispatchTCPSegment(data, reader.LinkType(), udlPort, panelSession, passwordSession)
	}
}

func dispatchTCPSegment(data []byte, linkType layers.LinkType, udlPort int, panelSession, passwordSession *wintex.Session) {
	packet := gopacket.NewPacket(data, linkType, gopacket.Default)
	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return
	}
	tcp, _ := tcpLayer.(*layers.TCP)
	if len(tcp.Payload) == 0 {
		return
	}
	switch int(tcp.DstPort) {
	case udlPort:
		passwordSession.Feed(tcp.Payload)
	default:
		if int(tcp.SrcPort) == udlPort {
			panelSession.Feed(tcp.Payload)
		}
	}
}
