package manager

import (
	"fmt"
	"log"
	"sync"
	"time"

	"GoJigsaw/internal/config"
	_ "GoJigsaw/internal/engine/impl/exact"  // Registers exact task aggregator
	_ "GoJigsaw/internal/engine/impl/jigsaw" // Registers jigsaw task aggregator
	"GoJigsaw/internal/factory"
	"GoJigsaw/internal/model"
)

// Manager orchestrates a set of measurement tasks and their writers.
type Manager struct {
	taskGroups []factory.TaskGroup

	// Worker pool for concurrent packet processing
	packetChannel chan *model.PacketInfo
	numWorkers    int
	workerWg      sync.WaitGroup

	// Snapshotting and resetting resources
	period        time.Duration // Global measurement period
	done          chan struct{}
	snapshotterWg sync.WaitGroup
	resetterWg    sync.WaitGroup
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	taskGroups, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}

	period, err := time.ParseDuration(cfg.Aggregator.Period)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregator period: %w", err)
	}
	if period <= 0 {
		return nil, fmt.Errorf("aggregator period must be a positive duration")
	}

	numWorkers := cfg.Aggregator.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &Manager{
		taskGroups:    taskGroups,
		period:        period,
		done:          make(chan struct{}),
		packetChannel: make(chan *model.PacketInfo, cfg.Aggregator.SizeOfPacketChannel),
		numWorkers:    numWorkers,
	}, nil
}

// InputChannel returns the channel to which packets should be sent.
func (m *Manager) InputChannel() chan *model.PacketInfo {
	return m.packetChannel
}

// Tasks returns every task across all groups.
func (m *Manager) Tasks() []model.Task {
	var tasks []model.Task
	for _, group := range m.taskGroups {
		tasks = append(tasks, group.Tasks...)
	}
	return tasks
}

// Start begins the manager's packet processing workers, snapshotter, and
// resetter goroutines.
func (m *Manager) Start() {
	// For each group, start a dedicated snapshotter for each of its writers.
	for _, group := range m.taskGroups {
		for _, writer := range group.Writers {
			m.snapshotterWg.Add(1)
			go m.runSnapshotter(writer, group.Tasks)
			log.Printf("Started snapshotter for a writer with interval %s, handling %d tasks.", writer.GetInterval(), len(group.Tasks))
		}
	}

	// Start the global resetter for all tasks across all groups.
	m.resetterWg.Add(1)
	go m.runResetter()
	log.Printf("Started global resetter with period %s", m.period)

	// Start the packet processing worker pool.
	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	log.Printf("Manager started with %d workers.", m.numWorkers)
}

// runSnapshotter runs a dedicated snapshot loop for a single writer and
// its associated tasks.
func (m *Manager) runSnapshotter(writer model.Writer, tasks []model.Task) {
	defer m.snapshotterWg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		log.Printf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.takeSnapshotForWriter(writer, tasks)
		case <-m.done:
			m.takeSnapshotForWriter(writer, tasks)
			return
		}
	}
}

// takeSnapshotForWriter orchestrates taking and writing a snapshot for a
// specific writer.
func (m *Manager) takeSnapshotForWriter(writer model.Writer, tasks []model.Task) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	log.Printf("Taking snapshot for writer at %s for %d tasks.", timestamp, len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))

	for _, task := range tasks {
		go func(t model.Task) {
			defer wg.Done()
			if err := writer.Write(t.Snapshot(), timestamp); err != nil {
				log.Printf("Error writing snapshot for task %s: %v", t.Name(), err)
			}
		}(task)
	}

	wg.Wait() // Wait for all tasks in this group to complete
}

// runResetter runs a dedicated loop to reset all tasks periodically.
func (m *Manager) runResetter() {
	defer m.resetterWg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.resetAllTasks()
		case <-m.done:
			log.Println("Resetter shutting down.")
			return
		}
	}
}

// resetAllTasks iterates through all tasks across all groups and calls
// their Reset method.
func (m *Manager) resetAllTasks() {
	log.Printf("Resetting all tasks for new measurement period at %s", time.Now().Format("2006-01-02_15-04-05"))
	var wg sync.WaitGroup
	for _, group := range m.taskGroups {
		wg.Add(len(group.Tasks))
		for _, task := range group.Tasks {
			go func(t model.Task) {
				defer wg.Done()
				t.Reset()
			}(task)
		}
	}
	wg.Wait()
	log.Println("All tasks have been reset.")
}

// Stop gracefully shuts down the manager.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	// 1. Stop accepting new packets.
	close(m.packetChannel)

	// 2. Wait for all workers to finish processing buffered packets.
	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()

	// 3. Signal snapshotters and resetter to take final actions and exit.
	close(m.done)
	log.Println("Waiting for snapshotters and resetter to finish...")
	m.snapshotterWg.Wait()
	m.resetterWg.Wait()

	log.Println("Manager stopped.")
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for info := range m.packetChannel {
		for _, group := range m.taskGroups {
			for _, task := range group.Tasks {
				task.ProcessPacket(info)
			}
		}
	}
}
