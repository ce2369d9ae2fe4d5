package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
aggregator:
  types: ["jigsaw", "exact"]
  period: "5m"
  num_workers: 4
  size_of_packet_channel: 10000
  jigsaw:
    tasks:
      - name: "per_flow_v4"
        key_schema: "ipv4_flow"
        bucket_num: 1024
        left_part_bits: 104
        cell_num_h: 8
        cell_num_l: 8
    writers:
      - type: "text"
        enabled: true
        snapshot_interval: "1m"
        text:
          root_path: "./snapshots"
probe:
  nats_url: "nats://127.0.0.1:4222"
  subject: "jigsaw.packets.raw"
api:
  listen_addr: ":8080"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Aggregator.Types) != 2 || cfg.Aggregator.Types[0] != "jigsaw" {
		t.Fatalf("aggregator types = %v", cfg.Aggregator.Types)
	}
	if len(cfg.Aggregator.Jigsaw.Tasks) != 1 {
		t.Fatalf("%d jigsaw tasks, want 1", len(cfg.Aggregator.Jigsaw.Tasks))
	}
	task := cfg.Aggregator.Jigsaw.Tasks[0]
	if task.KeySchema != "ipv4_flow" || task.BucketNum != 1024 || task.LeftPartBits != 104 {
		t.Fatalf("unexpected task definition: %+v", task)
	}
	if cfg.Probe.Subject != "jigsaw.packets.raw" {
		t.Fatalf("probe subject = %q", cfg.Probe.Subject)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Fatalf("api listen addr = %q", cfg.API.ListenAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
