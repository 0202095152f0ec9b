package repository

import (
	"context"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

// AllianceRepository reads the roster, train and event tables that the alert
// collectors measure.
type AllianceRepository interface {
	// ListTrainInstances returns non-archived instances dated within [from, to).
	ListTrainInstances(ctx context.Context, from, to time.Time) ([]entities.TrainInstance, error)
	// ListDepartingTrains returns non-archived SCHEDULED or BOARDING instances
	// that have a conductor, with the conductor loaded.
	ListDepartingTrains(ctx context.Context) ([]entities.TrainInstance, error)
	ListTrainSlots(ctx context.Context) ([]entities.TrainSlot, error)
	ListActiveMembers(ctx context.Context) ([]entities.Member, error)
	// ListIdleMembers returns ACTIVE members whose last activity is before cutoff.
	ListIdleMembers(ctx context.Context, cutoff time.Time) ([]entities.Member, error)
	// ListEventsStarting returns events starting within [from, to], soonest first.
	ListEventsStarting(ctx context.Context, from, to time.Time) ([]entities.Event, error)
}
