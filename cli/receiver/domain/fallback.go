package domain

import (
	"context"

	"github.com/daniil11ru/fleetcontrol/cli/receiver/types"
)

// History отдаёт последние сохранённые координаты трекера.
type History interface {
	LatestBySerial(ctx context.Context, serial string) (types.Position2D, bool, error)
}

// LocationFallback подставляет последние известные координаты вместо нулевых.
type LocationFallback struct {
	History History
}

// Apply заменяет координаты записи последними известными и выключает зажигание.
// Возвращает false, если и после подстановки координаты нулевые.
func (f *LocationFallback) Apply(ctx context.Context, r *types.Record) (bool, error) {
	r.Ignition = 0
	r.Latitude, r.Longitude = 0, 0

	if f.History != nil {
		pos, found, err := f.History.LatestBySerial(ctx, r.SerialNumber)
		if err != nil {
			return false, err
		}
		if found {
			r.Latitude, r.Longitude = pos.Latitude, pos.Longitude
		}
	}

	return r.Position().Valid(), nil
}
