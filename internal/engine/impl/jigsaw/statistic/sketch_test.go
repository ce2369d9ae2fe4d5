package statistic

import (
	"math/rand/v2"
	"testing"
)

func newIPv4Sketch(bucketNum, leftPartBits, cellNumH, cellNumL uint32) *Sketch[IPv4Flow] {
	codec := NewIPv4Codec(bucketNum, leftPartBits)
	return NewSketch[IPv4Flow](codec, bucketNum, leftPartBits, cellNumH, cellNumL)
}

func TestQueryEmptySketch(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	rng := rand.New(rand.NewPCG(1, 0))
	for i := 0; i < 1000; i++ {
		if got := sk.Query(randomIPv4Flow(rng)); got != 0 {
			t.Fatalf("fresh sketch returned %d", got)
		}
	}
}

func TestSingleFlowRecovery(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	flow := IPv4Flow{
		SrcIP:    0x12345678,
		DstIP:    0x87654321,
		SrcPort:  80,
		DstPort:  443,
		Protocol: 6,
	}

	for i := 0; i < 1000; i++ {
		sk.Insert(flow)
	}

	if got := sk.Query(flow); got < 1000 {
		t.Fatalf("query = %d, want >= 1000", got)
	}

	flows := sk.HeavyFlows()
	if len(flows) == 0 {
		t.Fatal("no heavy flows reported")
	}
	if flows[0].Key != flow {
		t.Fatalf("reconstructed %+v, want %+v", flows[0].Key, flow)
	}
	if flows[0].Count < 1000 {
		t.Fatalf("reported count = %d, want >= 1000", flows[0].Count)
	}
}

func TestQueryMissingFlow(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	sk.Insert(IPv4Flow{SrcIP: 0x12345678, DstIP: 0x87654321, SrcPort: 80, DstPort: 443, Protocol: 6})

	other := IPv4Flow{SrcIP: 0x01010101, DstIP: 0x02020202, SrcPort: 1, DstPort: 2, Protocol: 17}
	if got := sk.Query(other); got != 0 {
		t.Fatalf("query for an unseen flow = %d, want 0", got)
	}
}

func TestQueryMonotonic(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	flow := IPv4Flow{SrcIP: 0xC0A80001, DstIP: 0x08080808, SrcPort: 53211, DstPort: 53, Protocol: 17}

	prev := uint32(0)
	for n := uint32(1); n <= 2000; n++ {
		sk.Insert(flow)
		got := sk.Query(flow)
		if got < prev {
			t.Fatalf("after %d inserts: query dropped %d -> %d", n, prev, got)
		}
		if got < n {
			t.Fatalf("after %d inserts: query = %d, want >= %d", n, got, n)
		}
		prev = got
	}
}

func TestHeavyFlowWithNoise(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	heavy := IPv4Flow{SrcIP: 0x0A000001, DstIP: 0x0A000002, SrcPort: 443, DstPort: 51234, Protocol: 6}

	rng := rand.New(rand.NewPCG(99, 0))
	for i := 0; i < 10000; i++ {
		sk.Insert(heavy)
		sk.Insert(randomIPv4Flow(rng))
	}

	if got := sk.Query(heavy); got < 9500 {
		t.Fatalf("query(heavy) = %d, want >= 9500", got)
	}

	flows := sk.HeavyFlows()
	if len(flows) == 0 {
		t.Fatal("no heavy flows reported")
	}
	if flows[0].Key != heavy {
		t.Fatalf("top flow = %+v, want %+v", flows[0].Key, heavy)
	}
}

func TestWordCountRecovery(t *testing.T) {
	codec := NewCompactStringCodec(1024)
	sk := NewSketch[CompactStringKey](codec, 1024, 104, 8, 8)

	key := NewCompactStringKey("hello")
	for i := 0; i < 100; i++ {
		sk.Insert(key)
	}

	if got := sk.Query(key); got < 100 {
		t.Fatalf("query = %d, want >= 100", got)
	}

	flows := sk.HeavyFlows()
	if len(flows) == 0 {
		t.Fatal("no heavy flows reported")
	}
	if got := flows[0].Key.String(); got != "hello" {
		t.Fatalf("reconstructed word %q, want %q", got, "hello")
	}
}

func TestIPv6InsertQuery(t *testing.T) {
	codec := NewIPv6Codec(1024)
	sk := NewSketch[IPv6Flow](codec, 1024, 104, 8, 8)

	var flow IPv6Flow
	flow.SrcIP = [2]uint64{0x00000000b80d0120, 0x0100000000000000}
	flow.DstIP = [2]uint64{0x00000000b80d0120, 0x0200000000000000}
	flow.SrcPort = 80
	flow.DstPort = 443
	flow.Protocol = 6

	for i := 0; i < 100; i++ {
		sk.Insert(flow)
	}
	if got := sk.Query(flow); got < 100 {
		t.Fatalf("query = %d, want >= 100", got)
	}
}

// A single-cell sketch must keep tracking some key under a stream of
// distinct keys: replacement swaps the identity but never empties the
// cell.
func TestReservoirReplacement(t *testing.T) {
	sk := newIPv4Sketch(1, 104, 1, 0)
	rng := rand.New(rand.NewPCG(7, 7))

	sk.Insert(randomIPv4Flow(rng))
	if n := len(sk.HeavyFlows()); n != 1 {
		t.Fatalf("after first insert: %d tracked flows, want 1", n)
	}

	for i := 0; i < 10000; i++ {
		sk.Insert(randomIPv4Flow(rng))
	}

	flows := sk.HeavyFlows()
	if len(flows) != 1 {
		t.Fatalf("%d tracked flows, want 1", len(flows))
	}
	if flows[0].Count == 0 {
		t.Fatal("tracked cell has zero counter")
	}
	if got := sk.Query(flows[0].Key); got == 0 {
		t.Fatalf("query for the tracked key = 0, want > 0")
	}
}

func TestResetClearsSketch(t *testing.T) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	flow := IPv4Flow{SrcIP: 1, DstIP: 2, SrcPort: 3, DstPort: 4, Protocol: 6}
	for i := 0; i < 600; i++ {
		sk.Insert(flow)
	}
	sk.Reset()

	if got := sk.Query(flow); got != 0 {
		t.Fatalf("query after reset = %d, want 0", got)
	}
	if n := len(sk.HeavyFlows()); n != 0 {
		t.Fatalf("%d heavy flows after reset, want 0", n)
	}
}

func TestMemoryUsage(t *testing.T) {
	// 1024*16 cells of 6 bytes plus ceil(1024*8*81/64) words of 8 bytes
	want := 1024*16*6 + (1024*8*81+63)/64*8
	if got := MemoryUsage(1024, 79, 8, 8); got != want {
		t.Fatalf("MemoryUsage = %d, want %d", got, want)
	}
}
