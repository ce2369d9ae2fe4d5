package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JigsawTaskDef defines a single jigsaw sketch task from the config file.
type JigsawTaskDef struct {
	Name string `yaml:"name"`
	// KeySchema selects the reversible codec: "ipv4_flow" or "ipv6_flow".
	KeySchema    string `yaml:"key_schema"`
	BucketNum    uint32 `yaml:"bucket_num"`
	LeftPartBits uint32 `yaml:"left_part_bits"`
	CellNumH     uint32 `yaml:"cell_num_h"`
	CellNumL     uint32 `yaml:"cell_num_l"`
}

// ExactTaskDef defines a single exact aggregation task from the config file.
type ExactTaskDef struct {
	Name      string   `yaml:"name"`
	KeyFields []string `yaml:"key_fields"`
	NumShards uint32   `yaml:"num_shards"`
}

// TextConfig holds settings for the plain-text snapshot writer.
type TextConfig struct {
	RootPath string `yaml:"root_path"`
}

// GobConfig holds settings for the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines one snapshot writer attached to an aggregator group.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Text             TextConfig       `yaml:"text"`
	Gob              GobConfig        `yaml:"gob"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// JigsawConfig groups the jigsaw sketch tasks with their writers.
type JigsawConfig struct {
	Tasks   []JigsawTaskDef `yaml:"tasks"`
	Writers []WriterDef     `yaml:"writers"`
}

// ExactConfig groups the exact aggregation tasks with their writers.
type ExactConfig struct {
	Tasks   []ExactTaskDef `yaml:"tasks"`
	Writers []WriterDef    `yaml:"writers"`
}

// AggregatorConfig holds the configuration for the measurement engine.
type AggregatorConfig struct {
	Types               []string     `yaml:"types"`
	Period              string       `yaml:"period"`
	NumWorkers          int          `yaml:"num_workers"`
	SizeOfPacketChannel int          `yaml:"size_of_packet_channel"`
	Jigsaw              JigsawConfig `yaml:"jigsaw"`
	Exact               ExactConfig  `yaml:"exact"`
}

// ProbeConfig holds settings for the NATS packet transport.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds settings for the HTTP query server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Probe      ProbeConfig      `yaml:"probe"`
	API        APIConfig        `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return &cfg, nil
}
