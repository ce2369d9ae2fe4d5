package exact

import (
	"log"
	"strconv"
	"strings"
	"time"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/engine/impl/exact/statistic"
	"GoJigsaw/internal/factory"
	"GoJigsaw/internal/model"

	"github.com/cespare/xxhash/v2"
)

// --- Factory Registration ---

func init() {
	factory.RegisterAggregator("exact", func(cfg *config.Config) (*factory.TaskGroup, error) {
		exactCfg := cfg.Aggregator.Exact

		// Create all enabled writers for this aggregator group
		writers := make([]model.Writer, 0, len(exactCfg.Writers))
		for _, writerDef := range exactCfg.Writers {
			if !writerDef.Enabled {
				continue
			}

			interval, err := time.ParseDuration(writerDef.SnapshotInterval)
			if err != nil {
				log.Printf("Warning: invalid snapshot_interval for writer type '%s': %v, skipping.", writerDef.Type, err)
				continue
			}

			switch writerDef.Type {
			case "gob":
				writers = append(writers, NewGobWriter(writerDef.Gob.RootPath, interval))
			default:
				log.Printf("Warning: unknown writer type '%s' in exact aggregator config, skipping.", writerDef.Type)
			}
		}

		// Create all tasks for this aggregator group
		tasks := make([]model.Task, len(exactCfg.Tasks))
		for i, taskCfg := range exactCfg.Tasks {
			tasks[i] = New(taskCfg.Name, taskCfg.KeyFields, taskCfg.NumShards)
		}

		return &factory.TaskGroup{Tasks: tasks, Writers: writers}, nil
	})
}

// --- Task Implementation ---

const defaultShardCount = 256

// Task performs exact aggregation for a specific set of key fields using
// a sharded map. It implements the model.Task interface and serves as
// the ground-truth oracle for the sketch tasks.
type Task struct {
	name       string
	keyFields  []string
	shards     []*statistic.Shard
	shardCount uint32
}

// New creates a new exact aggregation task.
func New(name string, keyFields []string, numShards uint32) model.Task {
	if numShards == 0 || numShards >= 32768 {
		numShards = defaultShardCount
	}
	log.Printf("Creating ExactTask '%s' with %d shards for keys: %v", name, numShards, keyFields)
	task := &Task{
		name:       name,
		keyFields:  keyFields,
		shards:     make([]*statistic.Shard, numShards),
		shardCount: numShards,
	}
	for i := range task.shards {
		task.shards[i] = &statistic.Shard{
			Flows: make(map[string]*statistic.Flow),
		}
	}
	return task
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

// ProcessPacket creates or updates the flow for the packet's key in the
// correct shard.
func (t *Task) ProcessPacket(packetInfo *model.PacketInfo) {
	key := t.flowKey(&packetInfo.FiveTuple)
	shard := t.shards[xxhash.Sum64String(key)%uint64(t.shardCount)]

	shard.Mu.Lock()
	defer shard.Mu.Unlock()

	flow, exists := shard.Flows[key]
	if !exists {
		flow = &statistic.Flow{
			Key:       key,
			StartTime: packetInfo.Timestamp,
		}
		shard.Flows[key] = flow
	}
	flow.EndTime = packetInfo.Timestamp
	flow.ByteCount += uint64(packetInfo.Length)
	flow.PacketCount++
}

// Count returns the exact packet count recorded for a five-tuple.
func (t *Task) Count(ft *model.FiveTuple) uint64 {
	key := t.flowKey(ft)
	shard := t.shards[xxhash.Sum64String(key)%uint64(t.shardCount)]

	shard.Mu.RLock()
	defer shard.Mu.RUnlock()

	if flow, exists := shard.Flows[key]; exists {
		return flow.PacketCount
	}
	return 0
}

// Snapshot returns the sharded flow maps for persistence.
func (t *Task) Snapshot() any {
	return statistic.SnapshotData{
		TaskName: t.name,
		Shards:   t.shards,
	}
}

// Reset clears all shards, preparing for a new measurement period.
func (t *Task) Reset() {
	for _, shard := range t.shards {
		shard.Mu.Lock()
		shard.Flows = make(map[string]*statistic.Flow)
		shard.Mu.Unlock()
	}
}

// flowKey renders the configured key fields of a five-tuple as a string.
func (t *Task) flowKey(ft *model.FiveTuple) string {
	var parts []string
	for _, f := range t.keyFields {
		switch f {
		case "SrcIP":
			parts = append(parts, ft.SrcIP.String())
		case "DstIP":
			parts = append(parts, ft.DstIP.String())
		case "SrcPort":
			parts = append(parts, strconv.Itoa(int(ft.SrcPort)))
		case "DstPort":
			parts = append(parts, strconv.Itoa(int(ft.DstPort)))
		case "Protocol":
			parts = append(parts, strconv.Itoa(int(ft.Protocol)))
		}
	}
	return strings.Join(parts, " ")
}
