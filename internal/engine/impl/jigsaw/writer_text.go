package jigsaw

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"GoJigsaw/internal/model"
)

// TextWriter handles writing heavy flows to a text file.
type TextWriter struct {
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer for heavy flows.
func NewTextWriter(rootPath string, interval time.Duration) model.Writer {
	return &TextWriter{rootPath: rootPath, interval: interval}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *TextWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(HeavySnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for TextWriter: expected jigsaw.HeavySnapshot, got %T", payload)
	}

	taskDir := filepath.Join(w.rootPath, timestamp, snapshot.TaskName)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(taskDir, "heavy_flows.txt")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	for _, flow := range snapshot.Flows {
		if _, err := fmt.Fprintf(file, "%s %d\n", flow.Flow, flow.Count); err != nil {
			return fmt.Errorf("failed to write heavy flow to file: %w", err)
		}
	}

	log.Printf("Successfully wrote %d heavy flows to %s\n", len(snapshot.Flows), filePath)

	return nil
}
