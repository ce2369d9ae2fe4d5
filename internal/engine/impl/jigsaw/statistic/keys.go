package statistic

import (
	"encoding/binary"
	"fmt"
	"net"
)

// IPv4Flow is the 13-byte five-tuple key for IPv4 traffic:
// src/dst address, src/dst port, protocol.
type IPv4Flow struct {
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// IPv4FlowSize is the wire size of an IPv4Flow key in bytes.
const IPv4FlowSize = 13

// limbs packs the 13 key bytes into two little-endian 64-bit limbs.
// k0 holds bytes 0-7 (both addresses), k1 holds bytes 8-12
// (ports and protocol, high bits zero).
func (f IPv4Flow) limbs() (k0, k1 uint64) {
	k0 = uint64(f.SrcIP) | uint64(f.DstIP)<<32
	k1 = uint64(f.SrcPort) | uint64(f.DstPort)<<16 | uint64(f.Protocol)<<32
	return
}

func ipv4FlowFromLimbs(k0, k1 uint64) IPv4Flow {
	return IPv4Flow{
		SrcIP:    uint32(k0),
		DstIP:    uint32(k0 >> 32),
		SrcPort:  uint16(k1),
		DstPort:  uint16(k1 >> 16),
		Protocol: uint8(k1 >> 32),
	}
}

// String renders the flow as "proto src:port -> dst:port".
func (f IPv4Flow) String() string {
	src := make(net.IP, 4)
	dst := make(net.IP, 4)
	binary.LittleEndian.PutUint32(src, f.SrcIP)
	binary.LittleEndian.PutUint32(dst, f.DstIP)
	return fmt.Sprintf("%d %s:%d -> %s:%d", f.Protocol, src, f.SrcPort, dst, f.DstPort)
}

// IPv6Flow is the 37-byte five-tuple key for IPv6 traffic. Addresses are
// stored as two little-endian 64-bit words each.
type IPv6Flow struct {
	SrcIP    [2]uint64
	DstIP    [2]uint64
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// IPv6FlowSize is the wire size of an IPv6Flow key in bytes.
const IPv6FlowSize = 37

// NewIPv6Flow builds a key from 16-byte addresses.
func NewIPv6Flow(src, dst net.IP, srcPort, dstPort uint16, protocol uint8) IPv6Flow {
	var f IPv6Flow
	s := src.To16()
	d := dst.To16()
	f.SrcIP[0] = binary.LittleEndian.Uint64(s[0:8])
	f.SrcIP[1] = binary.LittleEndian.Uint64(s[8:16])
	f.DstIP[0] = binary.LittleEndian.Uint64(d[0:8])
	f.DstIP[1] = binary.LittleEndian.Uint64(d[8:16])
	f.SrcPort = srcPort
	f.DstPort = dstPort
	f.Protocol = protocol
	return f
}

// Src returns the source address as a net.IP.
func (f IPv6Flow) Src() net.IP {
	ip := make(net.IP, 16)
	binary.LittleEndian.PutUint64(ip[0:8], f.SrcIP[0])
	binary.LittleEndian.PutUint64(ip[8:16], f.SrcIP[1])
	return ip
}

// Dst returns the destination address as a net.IP.
func (f IPv6Flow) Dst() net.IP {
	ip := make(net.IP, 16)
	binary.LittleEndian.PutUint64(ip[0:8], f.DstIP[0])
	binary.LittleEndian.PutUint64(ip[8:16], f.DstIP[1])
	return ip
}

func (f IPv6Flow) String() string {
	return fmt.Sprintf("%d [%s]:%d -> [%s]:%d", f.Protocol, f.Src(), f.SrcPort, f.Dst(), f.DstPort)
}

// CompactStringKey packs a word of up to 12 lower-case letters into a
// single 60-bit integer, 5 bits per character, plus an 8-bit length.
type CompactStringKey struct {
	Data   uint64
	Length uint8
}

const (
	bitsPerChar  = 5
	maxWordChars = 12
)

// NewCompactStringKey encodes a word. Characters beyond the 12th are
// dropped; input is folded to lower case.
func NewCompactStringKey(s string) CompactStringKey {
	var k CompactStringKey
	n := len(s)
	if n > maxWordChars {
		n = maxWordChars
	}
	k.Length = uint8(n)
	for i := 0; i < n; i++ {
		enc := (s[i] | 0x20) - 'a'
		k.Data |= uint64(enc&0x1F) << (i * bitsPerChar)
	}
	return k
}

// String decodes the packed word.
func (k CompactStringKey) String() string {
	buf := make([]byte, k.Length)
	for i := range buf {
		buf[i] = 'a' + byte((k.Data>>(i*bitsPerChar))&0x1F)
	}
	return string(buf)
}
