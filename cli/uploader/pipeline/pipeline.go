package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/daniil11ru/tracker/cli/uploader/source"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

const DefaultBuffer = 64

var ErrClosed = errors.New("конвейер показаний был закрыт")

// Filter отбирает значимые показания
type Filter interface {
	Accept(s *types.Sample) (types.Position, bool)
}

// Sink принимает точки, прошедшие фильтр
type Sink interface {
	OnSampleAccepted(ctx context.Context, p types.Position) error
}

type Stats struct {
	Received uint64 `json:"received"`
	Accepted uint64 `json:"accepted"`
	Failed   uint64 `json:"failed"`
}

// Pipeline передает показания через фильтр в контроллер в одной рабочей горутине,
// поэтому фильтр вызывается последовательно
type Pipeline struct {
	filter Filter
	sink   Sink
	ch     chan types.Sample
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	received atomic.Uint64
	accepted atomic.Uint64
	failed   atomic.Uint64
}

func New(filter Filter, sink Sink, buffer int) *Pipeline {
	if buffer < 0 {
		buffer = DefaultBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		filter: filter,
		sink:   sink,
		ch:     make(chan types.Sample, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for sample := range p.ch {
		position, ok := p.filter.Accept(&sample)
		if !ok {
			continue
		}
		p.accepted.Add(1)

		if err := p.sink.OnSampleAccepted(p.ctx, position); err != nil {
			p.failed.Add(1)
			log.WithFields(log.Fields{"time": position.Time, "err": err}).Error("Ошибка сохранения точки")
		}
	}
}

// Save ставит показание в очередь на обработку
func (p *Pipeline) Save(sample types.Sample) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.ch <- sample:
		p.received.Add(1)
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

// Run читает показания провайдера, пока контекст не отменен или поток не закончился
func (p *Pipeline) Run(ctx context.Context, provider source.Provider) error {
	for sample := range provider.Samples(ctx) {
		if err := p.Save(sample); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Received: p.received.Load(),
		Accepted: p.accepted.Load(),
		Failed:   p.failed.Load(),
	}
}

// Close дожидается обработки уже принятых показаний
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
