package controller

/*
Контроллер отправки точек. Все переходы состояний выполняются в одной горутине,
которая обрабатывает очередь событий: запись точки, смена сети, завершение
операций с хранилищем и отправки, срабатывание таймеров. Операции ввода-вывода
выполняются в отдельных горутинах и возвращают результат событием.

Примеры переходов:

	запись -> чтение -> отправка -> удаление -> чтение
	чтение -> отправка -> повтор -> чтение -> отправка
*/

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	Idle State = iota
	Reading
	Sending
	Deleting
	RetryWaiting
	ThrottleWaiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Sending:
		return "sending"
	case Deleting:
		return "deleting"
	case RetryWaiting:
		return "retry_waiting"
	case ThrottleWaiting:
		return "throttle_waiting"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Queue interface {
	Enqueue(ctx context.Context, p types.Position) (int64, error)
	PeekBatch(ctx context.Context, n int) ([]types.Position, error)
	DeleteBatch(ctx context.Context, ids []int64) error
}

type Sender interface {
	Send(ctx context.Context, batch []types.Position) error
}

type Connectivity interface {
	CurrentStatus() types.Connectivity
}

// Locker запрещает системе засыпать на время операции
type Locker interface {
	Acquire() (release func())
}

// Journal принимает сообщения для пользователя
type Journal interface {
	Add(text string)
}

type Config struct {
	// BatchSize максимальное количество точек в одной отправке
	BatchSize int
	// ReportInterval минимальный интервал между успешными отправками вне безлимитной сети
	ReportInterval time.Duration
	RetryDelay     time.Duration
	// SaveTraffic в тарифицируемой сети отправлять по одной точке
	SaveTraffic bool
}

type Snapshot struct {
	State          State
	Connectivity   types.Connectivity
	WaitingForData bool
	LastSuccess    time.Time
}

type Controller struct {
	cfg          Config
	queue        Queue
	sender       Sender
	connectivity Connectivity
	lock         Locker
	journal      Journal

	events    chan func()
	done      chan struct{}
	actorDone chan struct{}
	io        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	// принадлежит горутине контроллера
	state       State
	status      types.Connectivity
	waiting     bool
	pending     bool
	lastSuccess time.Time
	timer       *time.Timer
	timerGen    uint64

	snapMu sync.Mutex
	snap   Snapshot
}

func New(cfg Config, queue Queue, sender Sender, connectivity Connectivity, lock Locker, journal Journal) *Controller {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if lock == nil {
		lock = nopLocker{}
	}
	if journal == nil {
		journal = nopJournal{}
	}
	return &Controller{
		cfg:          cfg,
		queue:        queue,
		sender:       sender,
		connectivity: connectivity,
		lock:         lock,
		journal:      journal,
		events:       make(chan func(), 64),
		done:         make(chan struct{}),
		actorDone:    make(chan struct{}),
		ctx:          context.Background(),
		state:        Idle,
		status:       types.Offline,
	}
}

// Start запускает обработку событий. Если сеть доступна, сразу начинается отправка накопленных точек.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(ctx)
		go c.loop()
		c.post(func() {
			c.status = c.connectivity.CurrentStatus()
			c.journal.Add("Connectivity " + c.status.String())
			if c.status.Online() {
				c.read()
			}
		})
	})
}

// Stop отменяет таймеры и начатые операции и дожидается их завершения. После возврата
// никакие события больше не меняют состояние.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		started := true
		c.startOnce.Do(func() { started = false })
		if started {
			<-c.actorDone
		}

		c.cancelTimer()
		if c.cancel != nil {
			c.cancel()
		}
		c.io.Wait()
		c.setState(Stopped)
		c.publish()
		log.Info("Контроллер отправки остановлен")
	})
}

func (c *Controller) loop() {
	defer close(c.actorDone)
	for {
		select {
		case fn := <-c.events:
			fn()
			c.publish()
		case <-c.done:
			return
		}
	}
}

func (c *Controller) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// OnSampleAccepted сохраняет точку в очередь. Ошибка означает, что точка не сохранена.
func (c *Controller) OnSampleAccepted(ctx context.Context, p types.Position) error {
	c.journal.Add("Location update")

	id, err := c.enqueue(ctx, p)
	if err != nil {
		log.WithField("err", err).Error("Точка не сохранена")
		return err
	}

	c.post(func() { c.onWritten(id) })
	return nil
}

func (c *Controller) enqueue(ctx context.Context, p types.Position) (int64, error) {
	defer c.lock.Acquire()()
	return c.queue.Enqueue(ctx, p)
}

func (c *Controller) OnConnectivityChanged(status types.Connectivity) {
	c.post(func() { c.onConnectivityChanged(status) })
}

func (c *Controller) Snapshot() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.snap = Snapshot{
		State:          c.state,
		Connectivity:   c.status,
		WaitingForData: c.waiting,
		LastSuccess:    c.lastSuccess,
	}
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	log.WithFields(log.Fields{"from": c.state, "to": s}).Debug("Смена состояния контроллера")
	c.state = s
}

func (c *Controller) busy() bool {
	switch c.state {
	case Reading, Sending, Deleting, Stopped:
		return true
	}
	return false
}

func (c *Controller) onWritten(id int64) {
	log.WithField("id", id).Debug("Точка записана")
	if c.busy() {
		// идущее чтение могло не увидеть эту точку
		c.pending = true
		return
	}
	if c.state == Idle && c.status.Online() {
		c.read()
	}
}

func (c *Controller) onConnectivityChanged(status types.Connectivity) {
	if status == c.status {
		return
	}
	previous := c.status
	c.status = status
	c.journal.Add("Connectivity " + status.String())

	if !previous.Online() && status.Online() {
		c.read()
		return
	}
	if status != types.OnlineUnmetered {
		return
	}
	// на безлимитной сети интервал между отправками не действует
	if c.state == ThrottleWaiting || previous == types.OnlineMetered && c.waiting && c.cfg.SaveTraffic {
		c.read()
	}
}

// read начинает цикл, если он еще не идет, с учетом минимального интервала между отправками
func (c *Controller) read() {
	if c.busy() {
		return
	}
	c.cancelTimer()

	if !c.status.Online() {
		c.setState(Idle)
		return
	}

	if c.status != types.OnlineUnmetered && !c.lastSuccess.IsZero() {
		left := c.cfg.ReportInterval - time.Since(c.lastSuccess)
		if left > 0 {
			c.journal.Add(fmt.Sprintf("wait %.2f secs", left.Seconds()))
			c.setState(ThrottleWaiting)
			c.schedule(left)
			return
		}
	}

	c.doRead()
}

func (c *Controller) batchSize() int {
	if c.status == types.OnlineMetered && c.cfg.SaveTraffic {
		return 1
	}
	return c.cfg.BatchSize
}

func (c *Controller) doRead() {
	c.pending = false
	c.setState(Reading)
	n := c.batchSize()
	c.background(func(ctx context.Context) func() {
		batch, err := c.queue.PeekBatch(ctx, n)
		return func() { c.onRead(batch, err) }
	})
}

func (c *Controller) onRead(batch []types.Position, err error) {
	if c.state != Reading {
		return
	}
	if err != nil {
		log.WithField("err", err).Warn("Не удалось прочитать точки из очереди")
		c.retry()
		return
	}
	if len(batch) == 0 {
		if c.pending {
			c.doRead()
			return
		}
		c.waiting = true
		c.setState(Idle)
		return
	}

	c.waiting = false
	c.send(batch)
}

func (c *Controller) send(batch []types.Position) {
	c.setState(Sending)
	requestTime := time.Now()
	log.WithField("ids", types.IDs(batch)).Debug("Отправка точек")

	c.background(func(ctx context.Context) func() {
		err := c.sender.Send(ctx, batch)
		return func() { c.onSent(batch, requestTime, err) }
	})
}

func (c *Controller) onSent(batch []types.Position, requestTime time.Time, err error) {
	if c.state != Sending {
		return
	}
	if err != nil {
		log.WithField("err", err).Warn("Не удалось отправить точки")
		c.journal.Add("Send failed")
		c.retry()
		return
	}

	c.journal.Add("Location sent")
	c.lastSuccess = requestTime
	c.delete(types.IDs(batch))
}

func (c *Controller) delete(ids []int64) {
	c.setState(Deleting)
	c.background(func(ctx context.Context) func() {
		err := c.queue.DeleteBatch(ctx, ids)
		return func() { c.onDeleted(ids, err) }
	})
}

func (c *Controller) onDeleted(ids []int64, err error) {
	if c.state != Deleting {
		return
	}
	if err != nil {
		log.WithFields(log.Fields{"ids": ids, "err": err}).Error("Не удалось удалить отправленные точки")
		c.retry()
		return
	}

	c.setState(Idle)
	c.read()
}

func (c *Controller) retry() {
	c.setState(RetryWaiting)
	c.schedule(c.cfg.RetryDelay)
}

// background выполняет операцию ввода-вывода вне горутины контроллера под блокировкой сна
func (c *Controller) background(op func(ctx context.Context) func()) {
	c.io.Add(1)
	go func() {
		defer c.io.Done()

		c.post(c.locked(op))
	}()
}

func (c *Controller) locked(op func(ctx context.Context) func()) func() {
	defer c.lock.Acquire()()
	return op(c.ctx)
}

func (c *Controller) schedule(d time.Duration) {
	c.cancelTimer()
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() {
		c.post(func() { c.onTimer(gen) })
	})
}

func (c *Controller) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) onTimer(gen uint64) {
	if gen != c.timerGen {
		return
	}
	c.timer = nil

	c.setState(Idle)
	if !c.status.Online() {
		log.Debug("Сеть недоступна, ожидание подключения")
		return
	}
	c.read()
}

type nopLocker struct{}

func (nopLocker) Acquire() func() { return func() {} }

type nopJournal struct{}

func (nopJournal) Add(string) {}
