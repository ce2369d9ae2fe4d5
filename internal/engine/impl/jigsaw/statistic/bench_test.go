package statistic

import (
	"math/rand/v2"
	"testing"
)

func benchFlows(n int, seed uint64) []IPv4Flow {
	rng := rand.New(rand.NewPCG(seed, 0))
	flows := make([]IPv4Flow, n)
	for i := range flows {
		flows[i] = randomIPv4Flow(rng)
	}
	return flows
}

func BenchmarkSketchInsert(b *testing.B) {
	sk := newIPv4Sketch(1024, 79, 8, 8)
	flows := benchFlows(1<<16, 42)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sk.Insert(flows[i&(len(flows)-1)])
	}
}

func BenchmarkSketchQuery(b *testing.B) {
	sk := newIPv4Sketch(1024, 79, 8, 8)
	inserted := benchFlows(1<<16, 42)
	for _, f := range inserted {
		sk.Insert(f)
	}
	// query a mix of tracked and unseen flows
	queries := append(benchFlows(1<<15, 42), benchFlows(1<<15, 43)...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sk.Query(queries[i&(len(queries)-1)])
	}
}

func BenchmarkHeavyFlows(b *testing.B) {
	sk := newIPv4Sketch(1024, 104, 8, 8)
	for _, f := range benchFlows(1<<16, 42) {
		sk.Insert(f)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sk.HeavyFlows()
	}
}
