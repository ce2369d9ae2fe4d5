package protocol

import (
	"fmt"
	"time"

	"GoJigsaw/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket uses gopacket to decode a raw packet and extract the
// five-tuple and length. Both IPv4 and IPv6 packets are supported;
// anything that is not TCP or UDP over IP is rejected.
func ParsePacket(data []byte) (*model.PacketInfo, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	info := &model.PacketInfo{
		Timestamp: time.Now(), // Overwritten by capture metadata when available
		Length:    len(data),
	}

	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
	}

	var fiveTuple model.FiveTuple

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		fiveTuple.SrcIP = ip.SrcIP
		fiveTuple.DstIP = ip.DstIP
		fiveTuple.Protocol = uint8(ip.Protocol)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		fiveTuple.SrcIP = ip.SrcIP
		fiveTuple.DstIP = ip.DstIP
		fiveTuple.Protocol = uint8(ip.NextHeader)
	} else {
		return nil, fmt.Errorf("not an IP packet")
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		fiveTuple.SrcPort = uint16(tcp.SrcPort)
		fiveTuple.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		fiveTuple.SrcPort = uint16(udp.SrcPort)
		fiveTuple.DstPort = uint16(udp.DstPort)
	} else {
		return nil, fmt.Errorf("not a TCP or UDP packet")
	}

	info.FiveTuple = fiveTuple

	return info, nil
}
