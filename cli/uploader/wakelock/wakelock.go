package wakelock

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Host ресурс операционной системы, не дающий ей уснуть
type Host interface {
	Acquire() error
	Release() error
}

// Lock реентерабельная блокировка сна со счетчиком владельцев. Ресурс хоста
// захватывается первым владельцем и отпускается последним, но не держится
// дольше timeout.
type Lock struct {
	host    Host
	timeout time.Duration

	mu      sync.Mutex
	holders int
	held    bool
	gen     uint64
	timer   *time.Timer
}

func New(host Host, timeout time.Duration) *Lock {
	if host == nil {
		host = None{}
	}
	return &Lock{host: host, timeout: timeout}
}

// Acquire захватывает блокировку, возвращаемая функция отпускает ее ровно один раз:
//
//	defer lock.Acquire()()
func (l *Lock) Acquire() (release func()) {
	l.mu.Lock()
	l.holders++
	if !l.held {
		l.acquireHost()
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(l.release)
	}
}

func (l *Lock) acquireHost() {
	if err := l.host.Acquire(); err != nil {
		log.WithField("err", err).Warn("Не удалось запретить системе засыпать")
		return
	}
	l.held = true
	l.gen++
	gen := l.gen
	if l.timeout > 0 {
		l.timer = time.AfterFunc(l.timeout, func() { l.expire(gen) })
	}
}

func (l *Lock) releaseHost() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.held = false
	l.gen++
	if err := l.host.Release(); err != nil {
		log.WithField("err", err).Warn("Не удалось снять запрет сна")
	}
}

func (l *Lock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holders--
	if l.holders == 0 && l.held {
		l.releaseHost()
	}
}

func (l *Lock) expire(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || !l.held {
		return
	}
	log.WithField("holders", l.holders).Warn("Блокировка сна удерживается слишком долго, принудительно отпущена")
	l.releaseHost()
}

// Holders текущее количество владельцев
func (l *Lock) Holders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holders
}

// Held удерживается ли ресурс хоста
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Close отпускает ресурс хоста независимо от владельцев
func (l *Lock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		l.releaseHost()
	}
	return nil
}

type None struct{}

func (None) Acquire() error { return nil }

func (None) Release() error { return nil }
