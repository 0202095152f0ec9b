package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/testutil/dbtest"
)

func TestAllianceRepository_Members(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAllianceRepository(db)
	ctx := t.Context()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	members := []entities.Member{
		{Pseudo: "Ragnar", Power: 120_000_000, Status: entities.MemberActive, Role: "R5", LastActive: now.Add(-time.Hour)},
		{Pseudo: "Lagertha", Power: 80_000_000, Status: entities.MemberActive, Role: "R4", LastActive: now.Add(-10 * 24 * time.Hour)},
		{Pseudo: "Floki", Power: 50_000_000, Status: entities.MemberLeft, Role: "R1", LastActive: now.Add(-30 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&members).Error)

	active, err := repo.ListActiveMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	idle, err := repo.ListIdleMembers(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "Lagertha", idle[0].Pseudo)
}

func TestAllianceRepository_Trains(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAllianceRepository(db)
	ctx := t.Context()
	today := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	conductor := entities.Member{Pseudo: "Bjorn", Status: entities.MemberActive, LastActive: today}
	require.NoError(t, db.Create(&conductor).Error)

	instances := []entities.TrainInstance{
		{Date: today, DayOfWeek: "friday", DepartureTime: "20:00", RealDepartureTime: "20:00", ConductorID: &conductor.ID, Status: entities.TrainScheduled},
		{Date: today.AddDate(0, 0, 1), DayOfWeek: "saturday", DepartureTime: "20:00", RealDepartureTime: "20:00", Status: entities.TrainScheduled},
		{Date: today.AddDate(0, 0, 2), DayOfWeek: "sunday", DepartureTime: "20:00", RealDepartureTime: "20:00", ConductorID: &conductor.ID, Status: entities.TrainBoarding, IsArchived: true},
		{Date: today.AddDate(0, 0, 14), DayOfWeek: "friday", DepartureTime: "20:00", RealDepartureTime: "20:00", Status: entities.TrainScheduled},
		{Date: today.AddDate(0, 0, 20), DayOfWeek: "thursday", DepartureTime: "20:00", RealDepartureTime: "20:00", ConductorID: &conductor.ID, Status: entities.TrainBoarding},
		{Date: today.AddDate(0, 0, 3), DayOfWeek: "monday", DepartureTime: "20:00", RealDepartureTime: "20:00", ConductorID: &conductor.ID, Status: entities.TrainCompleted},
	}
	require.NoError(t, db.Create(&instances).Error)

	window, err := repo.ListTrainInstances(ctx, today, today.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.Len(t, window, 3, "archived instances and those from the end date on are excluded")

	departing, err := repo.ListDepartingTrains(ctx)
	require.NoError(t, err)
	require.Len(t, departing, 2)
	for _, ti := range departing {
		require.NotNil(t, ti.Conductor)
		assert.Equal(t, "Bjorn", ti.Conductor.Pseudo)
	}

	slots := []entities.TrainSlot{
		{Day: "monday", DepartureTime: "20:00", ConductorID: &conductor.ID},
		{Day: "tuesday", DepartureTime: "20:00"},
	}
	require.NoError(t, db.Create(&slots).Error)

	gotSlots, err := repo.ListTrainSlots(ctx)
	require.NoError(t, err)
	require.Len(t, gotSlots, 2)
	require.NotNil(t, gotSlots[0].Conductor)
	assert.Nil(t, gotSlots[1].Conductor)
}

func TestAllianceRepository_Events(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAllianceRepository(db)
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	events := []entities.Event{
		{Title: "Desert Storm", Type: "DESERT_STORM", StartDate: now.Add(20 * time.Hour)},
		{Title: "VS Day", Type: "VS", StartDate: now.Add(2 * time.Hour)},
		{Title: "Past", Type: "OTHER", StartDate: now.Add(-time.Hour)},
		{Title: "Later", Type: "OTHER", StartDate: now.Add(48 * time.Hour)},
	}
	require.NoError(t, db.Create(&events).Error)

	got, err := repo.ListEventsStarting(t.Context(), now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "VS Day", got[0].Title)
	assert.Equal(t, "Desert Storm", got[1].Title)
}
