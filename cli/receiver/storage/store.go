package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/observability"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage/store/kafka"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage/store/nats"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage/store/questdb"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage/store/rabbitmq"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/storage/store/tarantool_queue"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidStorage = errors.New("хранилище не задано")
var ErrUnknownStorage = errors.New("хранилище не поддерживается")

type Store interface {
	Connector
	Saver
}

// Saver интерфейс для подключения внешних хранилищ
type Saver interface {
	// Save сохранение в хранилище
	Save(ctx context.Context, r *types.Record) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// LocationReader отдаёт последние известные координаты трекера.
type LocationReader interface {
	LatestBySerial(ctx context.Context, serial string) (types.Position2D, bool, error)
}

// FrameArchive сохраняет исходные кадры до разбора.
type FrameArchive interface {
	ArchiveFrame(ctx context.Context, body string, at time.Time) error
}

type namedSaver struct {
	name string
	Saver
}

// Repository набор выходных хранилищ
type Repository struct {
	storages []namedSaver
}

// AddStore добавляет хранилище для сохранения данных
func (r *Repository) AddStore(name string, s Saver) {
	r.storages = append(r.storages, namedSaver{name: name, Saver: s})
}

// Save сохраняет данные во все установленные хранилища. Ошибка одного хранилища
// не мешает записи в остальные.
func (r *Repository) Save(ctx context.Context, rec *types.Record) error {
	var firstErr error
	for _, store := range r.storages {
		if err := store.Save(ctx, rec); err != nil {
			observability.StoreErrors.WithLabelValues(store.name).Inc()
			log.WithFields(log.Fields{"store": store.name, "vehicle": rec.VehicleNumber, "err": err}).Error("Не удалось сохранить телеметрию")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", store.name, err)
			}
		}
	}
	return firstErr
}

// LocationReader возвращает первое хранилище, умеющее отдавать последние координаты.
func (r *Repository) LocationReader() LocationReader {
	for _, store := range r.storages {
		if lr, ok := store.Saver.(LocationReader); ok {
			return lr
		}
	}
	return nil
}

// ArchiveFrame передаёт исходный кадр всем хранилищам, ведущим архив кадров.
func (r *Repository) ArchiveFrame(ctx context.Context, body string, at time.Time) error {
	var firstErr error
	for _, store := range r.storages {
		archive, ok := store.Saver.(FrameArchive)
		if !ok {
			continue
		}
		if err := archive.ArchiveFrame(ctx, body, at); err != nil {
			observability.StoreErrors.WithLabelValues(store.name).Inc()
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", store.name, err)
			}
		}
	}
	return firstErr
}

// Close закрывает все хранилища, поддерживающие закрытие.
func (r *Repository) Close() {
	for _, store := range r.storages {
		if c, ok := store.Saver.(Connector); ok {
			if err := c.Close(); err != nil {
				log.WithFields(log.Fields{"store": store.name, "err": err}).Warn("Ошибка при закрытии хранилища")
			}
		}
	}
}

func newStore(name string) (Store, error) {
	switch name {
	case "questdb":
		return &questdb.Connector{}, nil
	case "nats":
		return &nats.Connector{}, nil
	case "rabbitmq":
		return &rabbitmq.Connector{}, nil
	case "tarantool_queue":
		return &tarantool_queue.Connector{}, nil
	case "kafka":
		return &kafka.Connector{}, nil
	default:
		return nil, ErrUnknownStorage
	}
}

// LoadStorages загружает хранилища из структуры конфига
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	for name, params := range storages {
		db, err := newStore(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if err := db.Init(params); err != nil {
			return fmt.Errorf("не удалось подключить хранилище %s: %w", name, err)
		}

		log.WithField("store", name).Info("Хранилище подключено")
		r.AddStore(name, db)
	}
	return nil
}

// NewRepository создает пустой репозиторий
func NewRepository() *Repository {
	return &Repository{}
}
