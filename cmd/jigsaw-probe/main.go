package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/engine/protocol"
	"GoJigsaw/internal/model"
	"GoJigsaw/internal/probe"
	gopcap "GoJigsaw/pkg/pcap"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	mode := flag.String("mode", "pub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	iface := flag.String("iface", "", "Interface to capture packets from (pub mode).")
	pcapFile := flag.String("pcap", "", "Replay packets from a pcap file instead of live capture (pub mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg.Probe, *iface, *pcapFile)
	case "sub":
		runSubscriber(cfg.Probe)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures packets (live or replayed) and publishes them to NATS.
func runProbe(cfg config.ProbeConfig, interfaceName, pcapFile string) {
	if interfaceName == "" && pcapFile == "" {
		log.Println("Error: either -iface or -pcap is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}

	pub, err := probe.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	if pcapFile != "" {
		replayFile(pub, pcapFile)
		return
	}

	log.Printf("Starting jigsaw-probe on interface: %s", interfaceName)

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}
	defer handle.Close()

	log.Println("Capture started successfully. Publishing packets to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		published := 0
		for packet := range packetSource.Packets() {
			info, err := protocol.ParsePacket(packet.Data())
			if err != nil {
				continue // Skip non-IP packets
			}
			if meta := packet.Metadata(); meta != nil {
				info.Timestamp = meta.Timestamp
			}
			if err := pub.Publish(info); err != nil {
				log.Printf("Failed to publish packet: %v", err)
				continue
			}
			published++
			if published%100000 == 0 {
				log.Printf("Published %d packets.", published)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, stopping probe.")
}

// replayFile publishes every packet of a pcap file to NATS.
func replayFile(pub *probe.Publisher, pcapFile string) {
	reader, err := gopcap.NewReader(pcapFile)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	packetChannel := make(chan *model.PacketInfo, 1000)
	done := make(chan struct{})
	go func() {
		defer close(done)
		published := 0
		for info := range packetChannel {
			if err := pub.Publish(info); err != nil {
				log.Printf("Failed to publish packet: %v", err)
				continue
			}
			published++
		}
		log.Printf("Replayed %d packets from %s.", published, pcapFile)
	}()

	reader.ReadPackets(packetChannel)
	close(packetChannel)
	<-done
}

// runSubscriber prints every packet seen on the probe subject.
func runSubscriber(cfg config.ProbeConfig) {
	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	if err := sub.Start(func(info *model.PacketInfo) {
		ft := &info.FiveTuple
		log.Printf("%d %s:%d -> %s:%d len=%d", ft.Protocol, ft.SrcIP, ft.SrcPort, ft.DstIP, ft.DstPort, info.Length)
	}); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping subscriber.")
}
