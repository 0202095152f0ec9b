package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
)

func collect(t *testing.T, f *fixture, alertType AlertType, raw string) Measurement {
	t.Helper()
	cond, _, err := DecodeConditions(alertType, []byte(raw))
	require.NoError(t, err)
	m, err := f.engine.collectors.Collect(t.Context(), cond)
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T { return &v }

func TestCollect_TrainCoverageVacuous(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	m := collect(t, f, TypeTrainCoverage, `{}`)
	assert.InDelta(t, 100.0, m.Value.Float(), 0)
	assert.False(t, Evaluate(m.Value, Criteria{Threshold: Number(80), Comparison: LessThan}))
}

func TestCollect_TrainCoverage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addMembers(t, 1, 100, fixtureNow)
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	// The window is fourteen days starting today, so day 14 is already out.
	// The last four are on day 14, later, archived and in the past.
	trains := []entities.TrainInstance{
		{Date: today, ConductorID: ptr(uint(1))},
		{Date: today.AddDate(0, 0, 1), ConductorID: ptr(uint(1))},
		{Date: today.AddDate(0, 0, 13), ConductorID: ptr(uint(1))},
		{Date: today.AddDate(0, 0, 3)},
		{Date: today.AddDate(0, 0, 14)},
		{Date: today.AddDate(0, 0, 20)},
		{Date: today.AddDate(0, 0, 4), IsArchived: true},
		{Date: today.AddDate(0, 0, -1), ConductorID: ptr(uint(1))},
	}
	for i := range trains {
		trains[i].DayOfWeek = "monday"
		trains[i].DepartureTime = "20:00"
		trains[i].RealDepartureTime = "20:00"
		trains[i].Status = entities.TrainScheduled
		require.NoError(t, f.db.Create(&trains[i]).Error)
	}

	m := collect(t, f, TypeTrainCoverage, `{}`)
	assert.InDelta(t, 75.0, m.Value.Float(), 0.001)
	data := m.Data.(TrainCoverageData)
	assert.Equal(t, 4, data.TotalTrains)
	assert.Equal(t, 3, data.AssignedTrains)
	assert.Equal(t, 1, data.MissingTrains)
}

func TestCollect_InactiveMembers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addMembers(t, 3, 100, fixtureNow.AddDate(0, 0, -10))
	require.NoError(t, f.db.Create(&entities.Member{
		Pseudo: "recent", Power: 1, Role: "R1", Status: entities.MemberActive, LastActive: fixtureNow.Add(-time.Hour),
	}).Error)
	require.NoError(t, f.db.Create(&entities.Member{
		Pseudo: "gone", Power: 1, Role: "R1", Status: entities.MemberLeft, LastActive: fixtureNow.AddDate(0, -3, 0),
	}).Error)

	m := collect(t, f, TypeInactiveMembers, `{}`)
	assert.InDelta(t, 3.0, m.Value.Float(), 0)
	data := m.Data.(InactiveMembersData)
	assert.Equal(t, 7, data.Timeframe)
	assert.Len(t, data.Members, 3)

	m = collect(t, f, TypeInactiveMembers, `{"timeframe":30}`)
	assert.InDelta(t, 0.0, m.Value.Float(), 0)
}

func TestCollect_MissingConductors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addMembers(t, 1, 100, fixtureNow)

	slots := []entities.TrainSlot{
		{Day: "monday", DepartureTime: "20:00"},
		{Day: "tuesday", DepartureTime: "20:00", ConductorID: ptr(uint(1))},
		{Day: "thursday", DepartureTime: "21:00"},
	}
	for i := range slots {
		require.NoError(t, f.db.Create(&slots[i]).Error)
	}

	m := collect(t, f, TypeMissingConductor, `{}`)
	assert.InDelta(t, 2.0, m.Value.Float(), 0)
	data := m.Data.(MissingConductorData)
	assert.Equal(t, 3, data.TotalSlots)
	assert.Equal(t, map[string]int{"monday": 1, "thursday": 1}, data.MissingByDay)
	assert.Equal(t, []string{"lundi", "jeudi"}, data.MissingDays)
}

func TestCollect_MemberAndPowerThreshold(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addMembers(t, 4, 2_500_000, fixtureNow)

	m := collect(t, f, TypeMemberThreshold, `{}`)
	assert.InDelta(t, 4.0, m.Value.Float(), 0)
	member := m.Data.(MemberThresholdData)
	assert.Equal(t, 100, member.Capacity)
	assert.InDelta(t, 4.0, member.FillPercent, 0.001)

	m = collect(t, f, TypePowerThreshold, `{}`)
	assert.InDelta(t, 10_000_000.0, m.Value.Float(), 0)
	power := m.Data.(PowerThresholdData)
	assert.Equal(t, int64(10_000_000), power.TotalPower)
	assert.InDelta(t, 2_500_000.0, power.AveragePower, 0.001)
}

func TestCollect_PowerThresholdNoMembers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	m := collect(t, f, TypePowerThreshold, `{}`)
	assert.InDelta(t, 0.0, m.Value.Float(), 0)
	assert.InDelta(t, 0.0, m.Data.(PowerThresholdData).AveragePower, 0)
}

func TestCollect_EventReminder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	m := collect(t, f, TypeEventReminder, `{}`)
	assert.InDelta(t, 0.0, m.Value.Float(), 0)
	assert.Empty(t, m.Data.Variables())

	events := []entities.Event{
		{Title: "Desert Storm", Type: "DESERT_STORM", StartDate: fixtureNow.Add(20 * time.Hour)},
		{Title: "VS", Type: "VS", StartDate: fixtureNow.Add(2 * time.Hour)},
		{Title: "Later", Type: "OTHER", StartDate: fixtureNow.Add(48 * time.Hour)},
		{Title: "Past", Type: "OTHER", StartDate: fixtureNow.Add(-time.Hour)},
	}
	for i := range events {
		require.NoError(t, f.db.Create(&events[i]).Error)
	}

	m = collect(t, f, TypeEventReminder, `{}`)
	assert.InDelta(t, 2.0, m.Value.Float(), 0)
	vars := m.Data.Variables()
	assert.Equal(t, "VS", vars["eventTitle"])
	assert.Equal(t, 24, vars["timeframe"])

	m = collect(t, f, TypeEventReminder, `{"timeframe":72}`)
	assert.InDelta(t, 3.0, m.Value.Float(), 0)
}

func TestCollect_TrainDeparture(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	require.NoError(t, f.db.Create(&entities.Member{
		Pseudo: "Bjorn", Power: 1, Role: "R4", Status: entities.MemberActive, LastActive: fixtureNow,
	}).Error)
	conductor := ptr(uint(1))
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	trains := []entities.TrainInstance{
		// now is 18:00; leaves in 20 minutes
		{Date: today, DepartureTime: "18:20", RealDepartureTime: "18:20", ConductorID: conductor, Status: entities.TrainScheduled},
		// leaves in 45 minutes, outside the 30 minute window
		{Date: today, DepartureTime: "18:45", RealDepartureTime: "18:45", ConductorID: conductor, Status: entities.TrainBoarding},
		// already gone
		{Date: today, DepartureTime: "17:30", RealDepartureTime: "17:30", ConductorID: conductor, Status: entities.TrainScheduled},
		// no conductor
		{Date: today, DepartureTime: "18:10", RealDepartureTime: "18:10", Status: entities.TrainScheduled},
		// departed status
		{Date: today, DepartureTime: "18:05", RealDepartureTime: "18:05", ConductorID: conductor, Status: entities.TrainDeparted},
		// yesterday's 23:50 train really leaving at 18:25 today rolls over to the next day
		{Date: yesterday, DepartureTime: "23:50", RealDepartureTime: "18:25", ConductorID: conductor, Status: entities.TrainScheduled},
	}
	for i := range trains {
		trains[i].DayOfWeek = "tuesday"
		require.NoError(t, f.db.Create(&trains[i]).Error)
	}

	m := collect(t, f, TypeTrainDeparture, `{}`)
	assert.InDelta(t, 2.0, m.Value.Float(), 0)
	data := m.Data.(TrainDepartureData)
	require.Len(t, data.Departures, 2)
	assert.Equal(t, 20, data.Departures[0].MinutesUntil)
	assert.Equal(t, "18:20", data.Departures[0].DepartureTime)
	assert.Equal(t, "Bjorn", data.Departures[0].ConductorName)
	assert.Equal(t, 25, data.Departures[1].MinutesUntil)

	vars := m.Data.Variables()
	assert.Equal(t, 20, vars["minutesUntil"])
	assert.Equal(t, []string{"Bjorn (18:20)", "Bjorn (18:25)"}, vars["departures"])

	m = collect(t, f, TypeTrainDeparture, `{"minutesBefore":60}`)
	assert.InDelta(t, 3.0, m.Value.Float(), 0)
}

func TestCollect_ManualMessage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	m := collect(t, f, TypeManualMessage, `{"title":"t","message":"hi"}`)
	assert.True(t, m.Value.IsBool())
	assert.Equal(t, map[string]any{"title": "t", "message": "hi"}, m.Data.Variables())
}
