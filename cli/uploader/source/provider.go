package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

const (
	KindSimple = "simple"
	KindMixed  = "mixed"

	DefaultRestartDelay = 5 * time.Second
)

var ErrUnknownProvider = errors.New("неизвестный провайдер координат")

// Provider поток показаний для фильтра
type Provider interface {
	Samples(ctx context.Context) iter.Seq[types.Sample]
}

type namedReader struct {
	name     string
	priority int
	reader   Reader
}

// LoadProvider создает провайдер kind по разделам source. Для mixed основным
// считается источник с наименьшим priority, при равенстве первый по имени.
func LoadProvider(kind string, sources map[string]map[string]string, fallbackAfter time.Duration) (Provider, error) {
	readers := make([]namedReader, 0, len(sources))
	for name, params := range sources {
		reader, err := NewReader(name, params)
		if err != nil {
			return nil, err
		}

		priority := 0
		if value, ok := params["priority"]; ok {
			if priority, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("некорректный priority для источника %s: %v", name, err)
			}
		}
		readers = append(readers, namedReader{name: name, priority: priority, reader: reader})
	}
	sort.Slice(readers, func(i, j int) bool {
		if readers[i].priority != readers[j].priority {
			return readers[i].priority < readers[j].priority
		}
		return readers[i].name < readers[j].name
	})

	switch kind {
	case KindSimple:
		if len(readers) != 1 {
			return nil, fmt.Errorf("для провайдера simple нужен ровно один источник, задано %d", len(readers))
		}
		return NewSimple(readers[0].name, readers[0].reader), nil
	case KindMixed:
		if len(readers) < 2 {
			return nil, fmt.Errorf("для провайдера mixed нужно минимум два источника")
		}
		names := make([]string, len(readers))
		list := make([]Reader, len(readers))
		for i, r := range readers {
			names[i], list[i] = r.name, r.reader
		}
		return NewMixed(names, list, fallbackAfter), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
}

// supervise перезапускает читатель после ошибки, пока контекст не отменен
func supervise(ctx context.Context, name string, reader Reader, out chan<- types.Sample, restartDelay time.Duration) {
	for {
		err := reader.Run(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			log.WithField("source", name).Info("Источник координат завершил работу")
			return
		}

		log.WithFields(log.Fields{"source": name, "err": err}).Warnf("Ошибка источника координат, перезапуск через %v", restartDelay)
		timer := time.NewTimer(restartDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// Simple отдает показания единственного источника
type Simple struct {
	name         string
	reader       Reader
	RestartDelay time.Duration
}

func NewSimple(name string, reader Reader) *Simple {
	return &Simple{name: name, reader: reader, RestartDelay: DefaultRestartDelay}
}

func (s *Simple) Samples(ctx context.Context) iter.Seq[types.Sample] {
	return func(yield func(types.Sample) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan types.Sample)
		go func() {
			defer close(ch)
			supervise(ctx, s.name, s.reader, ch, s.RestartDelay)
		}()

		for sample := range ch {
			if !yield(sample) {
				return
			}
		}
	}
}

type tagged struct {
	index  int
	sample types.Sample
}

// Mixed отдает показания источника с наивысшим приоритетом. Показания остальных
// источников проходят, только пока все более приоритетные молчат дольше fallbackAfter.
type Mixed struct {
	names         []string
	readers       []Reader
	fallbackAfter time.Duration
	RestartDelay  time.Duration
	now           func() time.Time
}

func NewMixed(names []string, readers []Reader, fallbackAfter time.Duration) *Mixed {
	return &Mixed{
		names:         names,
		readers:       readers,
		fallbackAfter: fallbackAfter,
		RestartDelay:  DefaultRestartDelay,
		now:           time.Now,
	}
}

func (m *Mixed) Samples(ctx context.Context) iter.Seq[types.Sample] {
	return func(yield func(types.Sample) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		merged := make(chan tagged)
		done := make(chan struct{})
		remaining := len(m.readers)
		finished := make(chan struct{}, len(m.readers))

		for i, reader := range m.readers {
			ch := make(chan types.Sample)
			go func(name string, reader Reader) {
				defer close(ch)
				supervise(ctx, name, reader, ch, m.RestartDelay)
			}(m.names[i], reader)

			go func(index int) {
				defer func() { finished <- struct{}{} }()
				for sample := range ch {
					select {
					case merged <- tagged{index: index, sample: sample}:
					case <-ctx.Done():
						return
					}
				}
			}(i)
		}
		go func() {
			for ; remaining > 0; remaining-- {
				<-finished
			}
			close(done)
		}()

		started := m.now()
		lastSeen := make([]time.Time, len(m.readers))
		for {
			var t tagged
			select {
			case t = <-merged:
			case <-done:
				return
			}

			now := m.now()
			lastSeen[t.index] = now
			if !m.preferred(t.index, lastSeen, started, now) {
				continue
			}
			if !yield(t.sample) {
				return
			}
		}
	}
}

func (m *Mixed) preferred(index int, lastSeen []time.Time, started, now time.Time) bool {
	for i := 0; i < index; i++ {
		seen := lastSeen[i]
		if seen.IsZero() {
			seen = started
		}
		if now.Sub(seen) <= m.fallbackAfter {
			return false
		}
	}
	return true
}
