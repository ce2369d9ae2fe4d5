package probe

import (
	"bytes"
	"encoding/gob"
	"log"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing packet data to a NATS subject.
// Frames are gob-encoded model.PacketInfo values.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes a PacketInfo and publishes it to the configured
// NATS subject.
func (p *Publisher) Publish(packetInfo *model.PacketInfo) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(packetInfo); err != nil {
		return err
	}
	return p.nc.Publish(p.subject, buf.Bytes())
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
