package jigsaw

import (
	"encoding/binary"
	"log"
	"sync"
	"time"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/engine/impl/jigsaw/statistic"
	"GoJigsaw/internal/factory"
	"GoJigsaw/internal/model"
)

// --- Factory Registration ---

func init() {
	factory.RegisterAggregator("jigsaw", func(cfg *config.Config) (*factory.TaskGroup, error) {
		jigsawCfg := cfg.Aggregator.Jigsaw

		// Create all enabled writers for this aggregator group
		writers := make([]model.Writer, 0, len(jigsawCfg.Writers))
		for _, writerDef := range jigsawCfg.Writers {
			if !writerDef.Enabled {
				continue
			}

			interval, err := time.ParseDuration(writerDef.SnapshotInterval)
			if err != nil {
				log.Printf("Warning: invalid snapshot_interval for writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}

			var writer model.Writer
			switch writerDef.Type {
			case "text":
				writer = NewTextWriter(writerDef.Text.RootPath, interval)
				log.Printf("Text writer created at %s", writerDef.Text.RootPath)
			case "clickhouse":
				writer, err = NewClickHouseWriter(writerDef.ClickHouse, interval)
				if err != nil {
					log.Printf("Warning: failed to create writer type '%s': %v, skipping.", writerDef.Type, err)
					continue
				}
				log.Printf("ClickHouse writer created for database %s at %s:%d", writerDef.ClickHouse.Database, writerDef.ClickHouse.Host, writerDef.ClickHouse.Port)
			default:
				log.Printf("Warning: unknown writer type '%s' in jigsaw aggregator config, skipping.", writerDef.Type)
				continue
			}
			writers = append(writers, writer)
		}

		// Create all tasks for this aggregator group
		tasks := make([]model.Task, len(jigsawCfg.Tasks))
		for i, taskCfg := range jigsawCfg.Tasks {
			tasks[i] = New(taskCfg)
		}

		return &factory.TaskGroup{Tasks: tasks, Writers: writers}, nil
	})
}

// --- Task Implementation ---

// HeavyFlow is one decoded heavy key with its estimated count.
type HeavyFlow struct {
	Flow  string
	Count uint32
}

// HeavySnapshot is the payload produced by a jigsaw task snapshot.
type HeavySnapshot struct {
	TaskName string
	Flows    []HeavyFlow
}

// flowSketch adapts a concretely-keyed sketch to the packet stream.
type flowSketch interface {
	Insert(ft *model.FiveTuple)
	Query(ft *model.FiveTuple) uint32
	HeavyFlows() []HeavyFlow
	Reset()
}

// Default sketch geometry, used when the config leaves a field zero.
const (
	defaultBucketNum    = 1024
	defaultLeftPartBits = 104
	defaultCellNumH     = 8
	defaultCellNumL     = 8
)

// Task wraps one jigsaw sketch as a measurement task. The sketch core is
// single-writer, so the task serializes access with a mutex; the worker
// pool above may still fan packets out across tasks.
type Task struct {
	name   string
	schema string
	mu     sync.Mutex
	sketch flowSketch
}

// New creates a new jigsaw sketch task based on the provided configuration.
func New(cfg config.JigsawTaskDef) model.Task {
	if cfg.BucketNum == 0 {
		cfg.BucketNum = defaultBucketNum
	}
	if cfg.LeftPartBits == 0 {
		cfg.LeftPartBits = defaultLeftPartBits
	}
	if cfg.LeftPartBits > 126 {
		log.Fatalf("left_part_bits %d out of range for task %s", cfg.LeftPartBits, cfg.Name)
	}
	if cfg.CellNumH == 0 {
		cfg.CellNumH = defaultCellNumH
	}
	if cfg.CellNumL == 0 {
		cfg.CellNumL = defaultCellNumL
	}

	var sk flowSketch
	switch cfg.KeySchema {
	case "", "ipv4_flow":
		sk = newIPv4FlowSketch(cfg.BucketNum, cfg.LeftPartBits, cfg.CellNumH, cfg.CellNumL)
	case "ipv6_flow":
		sk = newIPv6FlowSketch(cfg.BucketNum, cfg.LeftPartBits, cfg.CellNumH, cfg.CellNumL)
	default:
		log.Fatalf("Unknown key schema: %s for task %s", cfg.KeySchema, cfg.Name)
	}

	log.Printf("Creating Jigsaw Sketch '%s' (%s) with bucket_num %d, left_part_bits %d, cell_num_h %d, cell_num_l %d, memory %d bytes",
		cfg.Name, cfg.KeySchema, cfg.BucketNum, cfg.LeftPartBits, cfg.CellNumH, cfg.CellNumL,
		statistic.MemoryUsage(cfg.BucketNum, cfg.LeftPartBits, cfg.CellNumH, cfg.CellNumL))

	return &Task{
		name:   cfg.Name,
		schema: cfg.KeySchema,
		sketch: sk,
	}
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

// ProcessPacket feeds a single packet's flow key into the sketch.
func (t *Task) ProcessPacket(packetInfo *model.PacketInfo) {
	t.mu.Lock()
	t.sketch.Insert(&packetInfo.FiveTuple)
	t.mu.Unlock()
}

// Query returns the estimated count for a flow.
func (t *Task) Query(ft *model.FiveTuple) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sketch.Query(ft)
}

// Snapshot reconstructs the currently tracked heavy flows.
func (t *Task) Snapshot() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return HeavySnapshot{
		TaskName: t.name,
		Flows:    t.sketch.HeavyFlows(),
	}
}

// Reset clears the sketch, preparing for a new measurement period.
func (t *Task) Reset() {
	t.mu.Lock()
	t.sketch.Reset()
	t.mu.Unlock()
}

// --- Schema adapters ---

type ipv4FlowSketch struct {
	sk *statistic.Sketch[statistic.IPv4Flow]
}

func newIPv4FlowSketch(bucketNum, leftPartBits, cellNumH, cellNumL uint32) *ipv4FlowSketch {
	codec := statistic.NewIPv4Codec(bucketNum, leftPartBits)
	return &ipv4FlowSketch{
		sk: statistic.NewSketch[statistic.IPv4Flow](codec, bucketNum, leftPartBits, cellNumH, cellNumL),
	}
}

func ipv4Key(ft *model.FiveTuple) (statistic.IPv4Flow, bool) {
	src := ft.SrcIP.To4()
	dst := ft.DstIP.To4()
	if src == nil || dst == nil {
		return statistic.IPv4Flow{}, false
	}
	return statistic.IPv4Flow{
		SrcIP:    binary.LittleEndian.Uint32(src),
		DstIP:    binary.LittleEndian.Uint32(dst),
		SrcPort:  ft.SrcPort,
		DstPort:  ft.DstPort,
		Protocol: ft.Protocol,
	}, true
}

func (s *ipv4FlowSketch) Insert(ft *model.FiveTuple) {
	if key, ok := ipv4Key(ft); ok {
		s.sk.Insert(key)
	}
}

func (s *ipv4FlowSketch) Query(ft *model.FiveTuple) uint32 {
	key, ok := ipv4Key(ft)
	if !ok {
		return 0
	}
	return s.sk.Query(key)
}

func (s *ipv4FlowSketch) HeavyFlows() []HeavyFlow {
	flows := s.sk.HeavyFlows()
	out := make([]HeavyFlow, len(flows))
	for i, f := range flows {
		out[i] = HeavyFlow{Flow: f.Key.String(), Count: f.Count}
	}
	return out
}

func (s *ipv4FlowSketch) Reset() {
	s.sk.Reset()
}

type ipv6FlowSketch struct {
	sk *statistic.Sketch[statistic.IPv6Flow]
}

func newIPv6FlowSketch(bucketNum, leftPartBits, cellNumH, cellNumL uint32) *ipv6FlowSketch {
	codec := statistic.NewIPv6Codec(bucketNum)
	return &ipv6FlowSketch{
		sk: statistic.NewSketch[statistic.IPv6Flow](codec, bucketNum, leftPartBits, cellNumH, cellNumL),
	}
}

func (s *ipv6FlowSketch) Insert(ft *model.FiveTuple) {
	s.sk.Insert(statistic.NewIPv6Flow(ft.SrcIP, ft.DstIP, ft.SrcPort, ft.DstPort, ft.Protocol))
}

func (s *ipv6FlowSketch) Query(ft *model.FiveTuple) uint32 {
	return s.sk.Query(statistic.NewIPv6Flow(ft.SrcIP, ft.DstIP, ft.SrcPort, ft.DstPort, ft.Protocol))
}

func (s *ipv6FlowSketch) HeavyFlows() []HeavyFlow {
	flows := s.sk.HeavyFlows()
	out := make([]HeavyFlow, len(flows))
	for i, f := range flows {
		out[i] = HeavyFlow{Flow: f.Key.String(), Count: f.Count}
	}
	return out
}

func (s *ipv6FlowSketch) Reset() {
	s.sk.Reset()
}
