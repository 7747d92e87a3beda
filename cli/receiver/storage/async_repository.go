package storage

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/observability"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("асинхронный репозиторий был закрыт")

const saveTimeout = 10 * time.Second

// AsyncRepository - ограниченная очередь записи с фоновыми обработчиками.
// При переполнении вытесняется самая старая запись.
type AsyncRepository struct {
	repo   Saver
	ch     chan *types.Record
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewAsyncRepository(repo Saver, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if buffer <= 0 {
		buffer = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	ar := &AsyncRepository{
		repo:   repo,
		ch:     make(chan *types.Record, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for rec := range a.ch {
		ctx, cancel := context.WithTimeout(a.ctx, saveTimeout)
		if err := a.repo.Save(ctx, rec); err != nil {
			log.WithFields(log.Fields{"vehicle": rec.VehicleNumber, "err": err}).Error("Ошибка сохранения телеметрии")
		}
		cancel()
	}
}

// Enqueue ставит запись в очередь и никогда не блокируется.
func (a *AsyncRepository) Enqueue(rec *types.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrQueueClosed
	}

	for {
		select {
		case a.ch <- rec:
			return nil
		default:
		}

		select {
		case old := <-a.ch:
			observability.QueueOverflow.Inc()
			log.WithField("vehicle", old.VehicleNumber).Warn("Очередь записи переполнена, старейшая запись отброшена")
		default:
		}
	}
}

// Len возвращает количество записей, ожидающих сохранения.
func (a *AsyncRepository) Len() int {
	return len(a.ch)
}

// Close дожидается сохранения уже поставленных записей.
func (a *AsyncRepository) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
	a.cancel()
}
