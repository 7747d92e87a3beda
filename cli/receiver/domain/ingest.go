package domain

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/appconfig"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/observability"
	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
	"github.com/daniil11ru/fleetcontrol/libs/itriangle"
	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	log "github.com/sirupsen/logrus"
)

var now = time.Now

const DefaultGeohashPrecision = 30

// Stage - состояние обработки сообщения.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageLocationOK
	StageRateChecked
	StageResolved
	StagePersistable
	StageDropped
)

var stageNames = map[Stage]string{
	StageReceived:    "received",
	StageValidated:   "validated",
	StageLocationOK:  "location_ok",
	StageRateChecked: "rate_checked",
	StageResolved:    "resolved",
	StagePersistable: "persistable",
	StageDropped:     "dropped",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Reason - причина, по которой сообщение отброшено.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonThrottled      Reason = "throttled"
	ReasonHandshake      Reason = "handshake"
	ReasonNoLocation     Reason = "no_location"
	ReasonIgnitionOff    Reason = "ignition_off"
	ReasonUnknownVehicle Reason = "unknown_vehicle"
	ReasonUnavailable    Reason = "unavailable"
	ReasonQueueClosed    Reason = "queue_closed"
)

// Frame - тело одного кадра, полученного от трекера.
type Frame struct {
	RemoteAddr string
	Body       string
	ReceivedAt time.Time
}

type Result struct {
	Stage  Stage
	Reason Reason
	Record *types.Record
}

// Queue принимает готовые записи на асинхронное сохранение.
type Queue interface {
	Enqueue(r *types.Record) error
}

// Archive сохраняет исходные кадры, прошедшие ограничение частоты.
type Archive interface {
	ArchiveFrame(ctx context.Context, body string, at time.Time) error
}

// Ingest проводит сообщение через фильтры и ставит готовую запись в очередь.
type Ingest struct {
	Limiter  *Limiter
	Resolver *Resolver
	Fallback *LocationFallback
	Queue    Queue
	Archive  Archive
	Config   appconfig.Source

	GeohashPrecision int
}

func orZero(v float64) float64 {
	if itriangle.Present(v) {
		return v
	}
	return 0
}

func receivedAt(f Frame) time.Time {
	if f.ReceivedAt.IsZero() {
		return now()
	}
	return f.ReceivedAt
}

func newRecord(msg itriangle.Message, f Frame) *types.Record {
	ts := receivedAt(f)
	return &types.Record{
		ID:           uuid.New(),
		SerialNumber: msg.SerialNumber,
		Speed:        orZero(msg.SpeedKph),
		Overspeed:    orZero(msg.Overspeed),
		Latitude:     msg.Latitude,
		Longitude:    msg.Longitude,
		Ignition:     int(math.Round(msg.Ignition)),
		Odometer:     msg.OdometerKm,
		Heading:      msg.HeadingDegrees,
		Timestamp:    ts,
	}
}

// GeohashChars переводит точность в битах в количество символов geohash.
func GeohashChars(bits int) uint {
	chars := (bits + 4) / 5
	if chars < 1 {
		chars = 1
	}
	if chars > 12 {
		chars = 12
	}
	return uint(chars)
}

func (i *Ingest) geohash(ctx context.Context, r *types.Record) string {
	def := i.GeohashPrecision
	if def <= 0 {
		def = DefaultGeohashPrecision
	}
	bits := appconfig.Int(ctx, i.Config, appconfig.KeyGeohashPrecision, def)
	return geohash.EncodeWithPrecision(r.Latitude, r.Longitude, GeohashChars(bits))
}

func drop(stage Stage, reason Reason, r *types.Record, err error) (Result, error) {
	observability.Dropped.WithLabelValues(string(reason)).Inc()

	entry := log.WithFields(log.Fields{"stage": stage.String(), "reason": reason})
	if r != nil {
		entry = entry.WithField("serial", r.SerialNumber)
	}
	if err != nil {
		entry.WithField("err", err).Warn("Сообщение отброшено из-за ошибки")
	} else {
		entry.Debug("Сообщение отброшено")
	}

	return Result{Stage: StageDropped, Reason: reason, Record: r}, err
}

// Run обрабатывает один кадр. Отброшенное сообщение не является ошибкой:
// ошибка возвращается только при недоступности внешних зависимостей.
func (i *Ingest) Run(ctx context.Context, f Frame) (Result, error) {
	stage := StageReceived

	allowed, err := i.Limiter.Allow(ctx, ThrottleKey(f.RemoteAddr))
	if err != nil {
		return drop(stage, ReasonUnavailable, nil, err)
	}
	if !allowed {
		log.WithField("ip", f.RemoteAddr).Info("Сообщение отправлено слишком рано, запись не производится")
		return drop(stage, ReasonThrottled, nil, nil)
	}

	if i.Archive != nil {
		if err := i.Archive.ArchiveFrame(ctx, f.Body, receivedAt(f)); err != nil {
			log.WithFields(log.Fields{"ip": f.RemoteAddr, "err": err}).Warn("Не удалось сохранить исходное сообщение")
		}
	}

	msg := itriangle.Parse(f.Body)
	if msg.IsHandshake() || msg.SerialNumber == "" {
		log.WithFields(log.Fields{"ip": f.RemoteAddr, "serial": msg.SerialNumber}).Info("Начальное сообщение без телеметрии, запись не производится")
		return drop(stage, ReasonHandshake, nil, nil)
	}
	stage = StageValidated
	rec := newRecord(msg, f)

	if !msg.HasPosition() {
		log.WithField("serial", rec.SerialNumber).Info("Нулевые координаты, используется последнее известное положение, зажигание выключено")
		ok, err := i.Fallback.Apply(ctx, rec)
		if err != nil {
			return drop(stage, ReasonUnavailable, rec, err)
		}
		if !ok {
			return drop(stage, ReasonNoLocation, rec, nil)
		}
		stage = StageLocationOK
	}

	allowed, err = i.Limiter.AllowIgnition(ctx, rec.SerialNumber, rec.Ignition)
	if err != nil {
		return drop(stage, ReasonUnavailable, rec, err)
	}
	if !allowed {
		return drop(stage, ReasonIgnitionOff, rec, nil)
	}
	stage = StageRateChecked

	rec.VehicleNumber, err = i.Resolver.Resolve(ctx, rec.SerialNumber)
	if errors.Is(err, ErrVehicleNotFound) {
		log.WithField("serial", rec.SerialNumber).Warn("Транспорт с таким серийным номером не зарегистрирован")
		return drop(stage, ReasonUnknownVehicle, rec, nil)
	}
	if err != nil {
		return drop(stage, ReasonUnavailable, rec, err)
	}
	stage = StageResolved

	rec.Geohash = i.geohash(ctx, rec)

	if err := i.Queue.Enqueue(rec); err != nil {
		return drop(stage, ReasonQueueClosed, rec, err)
	}
	observability.Persisted.Inc()

	return Result{Stage: StagePersistable, Record: rec}, nil
}
