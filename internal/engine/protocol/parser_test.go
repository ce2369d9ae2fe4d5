package protocol

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		t.Fatalf("failed to serialize packet: %v", err)
	}
	return buf.Bytes()
}

func TestParseIPv4TCP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	tcp := &layers.TCP{SrcPort: 443, DstPort: 51234}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum setup: %v", err)
	}

	info, err := ParsePacket(serialize(t, eth, ip, tcp, gopacket.Payload([]byte("abc"))))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ft := info.FiveTuple
	if !ft.SrcIP.Equal(net.IPv4(10, 0, 0, 1)) || !ft.DstIP.Equal(net.IPv4(10, 0, 0, 2)) {
		t.Fatalf("addresses = %s -> %s", ft.SrcIP, ft.DstIP)
	}
	if ft.SrcPort != 443 || ft.DstPort != 51234 {
		t.Fatalf("ports = %d -> %d", ft.SrcPort, ft.DstPort)
	}
	if ft.Protocol != 6 {
		t.Fatalf("protocol = %d, want 6", ft.Protocol)
	}
}

func TestParseIPv6UDP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 53, DstPort: 4242}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum setup: %v", err)
	}

	info, err := ParsePacket(serialize(t, eth, ip, udp, gopacket.Payload([]byte("xyz"))))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ft := info.FiveTuple
	if !ft.SrcIP.Equal(net.ParseIP("2001:db8::1")) || !ft.DstIP.Equal(net.ParseIP("2001:db8::2")) {
		t.Fatalf("addresses = %s -> %s", ft.SrcIP, ft.DstIP)
	}
	if ft.SrcPort != 53 || ft.DstPort != 4242 {
		t.Fatalf("ports = %d -> %d", ft.SrcPort, ft.DstPort)
	}
	if ft.Protocol != 17 {
		t.Fatalf("protocol = %d, want 17", ft.Protocol)
	}
}

func TestParseRejectsNonIP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 0, 0, 2},
	}

	if _, err := ParsePacket(serialize(t, eth, arp)); err == nil {
		t.Fatal("expected an error for a non-IP packet")
	}
}
