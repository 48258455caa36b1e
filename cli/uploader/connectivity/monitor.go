package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

// Prober определяет текущее состояние сети
type Prober interface {
	Probe(ctx context.Context) (types.Connectivity, error)
}

// Monitor периодически опрашивает Prober и уведомляет подписчиков только при смене состояния
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu          sync.Mutex
	status      types.Connectivity
	subscribers []func(types.Connectivity)
}

func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	return &Monitor{prober: prober, interval: interval, status: types.Offline}
}

func (m *Monitor) CurrentStatus() types.Connectivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Monitor) Subscribe(fn func(types.Connectivity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Poll выполняет одну проверку, ошибка проверки считается отсутствием сети
func (m *Monitor) Poll(ctx context.Context) types.Connectivity {
	status, err := m.prober.Probe(ctx)
	if err != nil {
		log.WithField("err", err).Debug("Ошибка проверки сети")
		status = types.Offline
	}

	m.mu.Lock()
	if status == m.status {
		m.mu.Unlock()
		return status
	}
	previous := m.status
	m.status = status
	subscribers := append([]func(types.Connectivity){}, m.subscribers...)
	m.mu.Unlock()

	log.WithFields(log.Fields{"from": previous, "to": status}).Info("Изменилось состояние сети")
	for _, fn := range subscribers {
		fn(status)
	}
	return status
}

// Run опрашивает сеть до отмены контекста
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}
