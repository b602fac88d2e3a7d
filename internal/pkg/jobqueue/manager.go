package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Manager owns the queue lifecycle and periodically reports its depth.
type Manager struct {
	queue         *Queue
	statsInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager wraps queue. statsInterval <= 0 means five minutes.
func NewManager(queue *Queue, statsInterval time.Duration) *Manager {
	if statsInterval <= 0 {
		statsInterval = 5 * time.Minute
	}
	return &Manager{queue: queue, statsInterval: statsInterval}
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Start starts the queue workers and the stats reporter. It may be called
// again after Stop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	m.queue.Start()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.report(ctx, m.done)

	log.Info("[JobQueue Manager] Started")
}

// Stop halts the reporter first, then drains the queue workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped")
}

func (m *Manager) report(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logStats(ctx)
		}
	}
}

func (m *Manager) logStats(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Could not read queue size: %v", err)
		return
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Could not read processing size: %v", err)
		return
	}
	stats, err := m.queue.GetJobStats(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Could not read job stats: %v", err)
		return
	}
	log.Infof("[JobQueue Manager] pending=%d processing=%d completed=%d failed=%d",
		pending, processing, stats[JobStatusCompleted], stats[JobStatusFailed])
}
