package alerting

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
)

// Measurement is the output of a collector: the value compared against the
// threshold and the variables available to the message template.
type Measurement struct {
	Value Scalar          `json:"value"`
	Data  MeasurementData `json:"data"`
}

// MeasurementData is the type-specific detail of a measurement.
type MeasurementData interface {
	Variables() map[string]any
}

// TrainCoverageData counts the train instances of the coverage window.
type TrainCoverageData struct {
	CoveragePercent float64 `json:"coveragePercent"`
	TotalTrains     int     `json:"totalTrains"`
	AssignedTrains  int     `json:"assignedTrains"`
	MissingTrains   int     `json:"missingTrains"`
}

// Variables exposes the counts and the coverage percentage.
func (d TrainCoverageData) Variables() map[string]any {
	return map[string]any{
		"coveragePercent": d.CoveragePercent,
		"totalTrains":     d.TotalTrains,
		"assignedTrains":  d.AssignedTrains,
		"missingTrains":   d.MissingTrains,
	}
}

// InactiveMembersData lists the active members idle for the timeframe.
type InactiveMembersData struct {
	InactiveCount int      `json:"inactiveCount"`
	Timeframe     int      `json:"timeframe"`
	Members       []string `json:"members"`
}

// Variables exposes the pseudos as inactiveMembers.
func (d InactiveMembersData) Variables() map[string]any {
	return map[string]any{
		"inactiveCount":   d.InactiveCount,
		"timeframe":       d.Timeframe,
		"inactiveMembers": d.Members,
	}
}

// MissingConductorData counts the weekly slots without a conductor.
type MissingConductorData struct {
	MissingCount int            `json:"missingCount"`
	TotalSlots   int            `json:"totalSlots"`
	MissingByDay map[string]int `json:"missingByDay"`
	MissingDays  []string       `json:"missingDays"`
}

// Variables omits the per-day counts; missingDays carries the labels.
func (d MissingConductorData) Variables() map[string]any {
	return map[string]any{
		"missingCount": d.MissingCount,
		"totalSlots":   d.TotalSlots,
		"missingDays":  d.MissingDays,
	}
}

// MemberThresholdData is the active headcount against alliance capacity.
type MemberThresholdData struct {
	MemberCount int     `json:"memberCount"`
	Capacity    int     `json:"capacity"`
	FillPercent float64 `json:"fillPercent"`
}

// Variables exposes every field under its JSON name.
func (d MemberThresholdData) Variables() map[string]any {
	return map[string]any{
		"memberCount": d.MemberCount,
		"capacity":    d.Capacity,
		"fillPercent": d.FillPercent,
	}
}

// PowerThresholdData sums the power of the active members.
type PowerThresholdData struct {
	TotalPower   int64   `json:"totalPower"`
	AveragePower float64 `json:"averagePower"`
	MemberCount  int     `json:"memberCount"`
}

// Variables rounds the average power to a whole number.
func (d PowerThresholdData) Variables() map[string]any {
	return map[string]any{
		"totalPower":   d.TotalPower,
		"averagePower": math.Round(d.AveragePower),
		"memberCount":  d.MemberCount,
	}
}

// UpcomingEvent is the event an EVENT_REMINDER message is about.
type UpcomingEvent struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"startDate"`
}

// EventReminderData counts the events starting within the timeframe.
type EventReminderData struct {
	EventCount int            `json:"eventCount"`
	Timeframe  int            `json:"timeframe"`
	Next       *UpcomingEvent `json:"next,omitempty"`
}

// Variables is empty when no event falls in the window.
func (d EventReminderData) Variables() map[string]any {
	if d.Next == nil {
		return map[string]any{}
	}
	return map[string]any{
		"eventCount": d.EventCount,
		"timeframe":  d.Timeframe,
		"eventTitle": d.Next.Title,
		"eventType":  d.Next.Type,
		"eventDate":  d.Next.StartDate,
	}
}

// Departure is one train leaving within the reminder window.
type Departure struct {
	TrainID       uint   `json:"trainId"`
	ConductorName string `json:"conductorName"`
	DepartureTime string `json:"departureTime"`
	MinutesUntil  int    `json:"minutesUntil"`
}

// TrainDepartureData lists the departures due within MinutesBefore, soonest first.
type TrainDepartureData struct {
	MinutesBefore int         `json:"minutesBefore"`
	Departures    []Departure `json:"departures"`
}

// Variables describes the soonest departure.
func (d TrainDepartureData) Variables() map[string]any {
	vars := map[string]any{"departureCount": len(d.Departures)}
	if len(d.Departures) == 0 {
		return vars
	}
	next := d.Departures[0]
	vars["conductorName"] = next.ConductorName
	vars["departureTime"] = next.DepartureTime
	vars["minutesUntil"] = next.MinutesUntil
	all := make([]string, 0, len(d.Departures))
	for _, dep := range d.Departures {
		all = append(all, fmt.Sprintf("%s (%s)", dep.ConductorName, dep.DepartureTime))
	}
	vars["departures"] = all
	return vars
}

// ManualMessageData carries the text of a MANUAL rule.
type ManualMessageData struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Variables exposes the title and message unchanged.
func (d ManualMessageData) Variables() map[string]any {
	return map[string]any{"title": d.Title, "message": d.Message}
}

// dayLabels maps stored weekday names to display names.
var dayLabels = map[string]string{
	"monday":    "lundi",
	"tuesday":   "mardi",
	"wednesday": "mercredi",
	"thursday":  "jeudi",
	"friday":    "vendredi",
	"saturday":  "samedi",
	"sunday":    "dimanche",
}

// Collectors measures the alliance data for each alert type.
type Collectors struct {
	repo     repository.AllianceRepository
	clock    Clock
	capacity int
	loc      *time.Location
}

// NewCollectors creates the collectors. A non-positive capacity falls back
// to DefaultAllianceCapacity and a nil location to UTC.
func NewCollectors(repo repository.AllianceRepository, clock Clock, capacity int, loc *time.Location) *Collectors {
	if capacity <= 0 {
		capacity = DefaultAllianceCapacity
	}
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Collectors{repo: repo, clock: clock, capacity: capacity, loc: loc}
}

// Collect returns the measurement for cond.
func (c *Collectors) Collect(ctx context.Context, cond Conditions) (Measurement, error) {
	switch cond := cond.(type) {
	case *TrainCoverageConditions:
		return c.trainCoverage(ctx)
	case *InactiveMembersConditions:
		return c.inactiveMembers(ctx, cond)
	case *MissingConductorConditions:
		return c.missingConductors(ctx)
	case *MemberThresholdConditions:
		return c.memberThreshold(ctx)
	case *PowerThresholdConditions:
		return c.powerThreshold(ctx)
	case *EventReminderConditions:
		return c.eventReminder(ctx, cond)
	case *TrainDepartureConditions:
		return c.trainDeparture(ctx, cond)
	case *ManualMessageConditions:
		return Measurement{
			Value: Bool(true),
			Data:  ManualMessageData{Title: cond.Title, Message: cond.Message},
		}, nil
	default:
		return Measurement{}, fmt.Errorf("%w: %T", ErrUnknownAlertType, cond)
	}
}

// today returns midnight of the current local calendar day, expressed in
// UTC the way train dates are stored.
func (c *Collectors) today() time.Time {
	y, m, d := c.clock.Now().In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *Collectors) trainCoverage(ctx context.Context) (Measurement, error) {
	from := c.today()
	to := from.AddDate(0, 0, coverageWindowDays)
	trains, err := c.repo.ListTrainInstances(ctx, from, to)
	if err != nil {
		return Measurement{}, err
	}

	data := TrainCoverageData{TotalTrains: len(trains), CoveragePercent: 100}
	for i := range trains {
		if trains[i].ConductorID != nil {
			data.AssignedTrains++
		}
	}
	data.MissingTrains = data.TotalTrains - data.AssignedTrains
	if data.TotalTrains > 0 {
		data.CoveragePercent = float64(data.AssignedTrains) / float64(data.TotalTrains) * 100
	}
	return Measurement{Value: Number(data.CoveragePercent), Data: data}, nil
}

func (c *Collectors) inactiveMembers(ctx context.Context, cond *InactiveMembersConditions) (Measurement, error) {
	days := cond.Timeframe
	if days <= 0 {
		days = 7
	}
	cutoff := c.clock.Now().AddDate(0, 0, -days)
	members, err := c.repo.ListIdleMembers(ctx, cutoff)
	if err != nil {
		return Measurement{}, err
	}

	data := InactiveMembersData{InactiveCount: len(members), Timeframe: days, Members: make([]string, 0, len(members))}
	for i := range members {
		data.Members = append(data.Members, members[i].Pseudo)
	}
	return Measurement{Value: Number(float64(data.InactiveCount)), Data: data}, nil
}

func (c *Collectors) missingConductors(ctx context.Context) (Measurement, error) {
	slots, err := c.repo.ListTrainSlots(ctx)
	if err != nil {
		return Measurement{}, err
	}

	data := MissingConductorData{TotalSlots: len(slots), MissingByDay: map[string]int{}, MissingDays: []string{}}
	for i := range slots {
		if slots[i].ConductorID != nil {
			continue
		}
		data.MissingCount++
		day := strings.ToLower(slots[i].Day)
		if data.MissingByDay[day] == 0 {
			label, ok := dayLabels[day]
			if !ok {
				label = day
			}
			data.MissingDays = append(data.MissingDays, label)
		}
		data.MissingByDay[day]++
	}
	return Measurement{Value: Number(float64(data.MissingCount)), Data: data}, nil
}

func (c *Collectors) memberThreshold(ctx context.Context) (Measurement, error) {
	members, err := c.repo.ListActiveMembers(ctx)
	if err != nil {
		return Measurement{}, err
	}
	data := MemberThresholdData{
		MemberCount: len(members),
		Capacity:    c.capacity,
		FillPercent: float64(len(members)) / float64(c.capacity) * 100,
	}
	return Measurement{Value: Number(float64(data.MemberCount)), Data: data}, nil
}

func (c *Collectors) powerThreshold(ctx context.Context) (Measurement, error) {
	members, err := c.repo.ListActiveMembers(ctx)
	if err != nil {
		return Measurement{}, err
	}
	data := PowerThresholdData{MemberCount: len(members)}
	for i := range members {
		data.TotalPower += members[i].Power
	}
	if data.MemberCount > 0 {
		data.AveragePower = float64(data.TotalPower) / float64(data.MemberCount)
	}
	return Measurement{Value: Number(float64(data.TotalPower)), Data: data}, nil
}

func (c *Collectors) eventReminder(ctx context.Context, cond *EventReminderConditions) (Measurement, error) {
	hours := cond.Timeframe
	if hours <= 0 {
		hours = 24
	}
	now := c.clock.Now()
	events, err := c.repo.ListEventsStarting(ctx, now, now.Add(time.Duration(hours)*time.Hour))
	if err != nil {
		return Measurement{}, err
	}

	data := EventReminderData{EventCount: len(events), Timeframe: hours}
	if len(events) > 0 {
		ev := events[0]
		data.Next = &UpcomingEvent{ID: ev.ID, Title: ev.Title, Type: ev.Type, StartDate: ev.StartDate}
	}
	return Measurement{Value: Number(float64(data.EventCount)), Data: data}, nil
}

func (c *Collectors) trainDeparture(ctx context.Context, cond *TrainDepartureConditions) (Measurement, error) {
	window := cond.MinutesBefore
	if window <= 0 {
		window = 30
	}
	trains, err := c.repo.ListDepartingTrains(ctx)
	if err != nil {
		return Measurement{}, err
	}

	now := c.clock.Now()
	data := TrainDepartureData{MinutesBefore: window, Departures: []Departure{}}
	for i := range trains {
		train := &trains[i]
		departure, hhmm, ok := c.departureInstant(train)
		if !ok {
			continue
		}
		minutes := int(math.Floor(departure.Sub(now).Minutes()))
		if minutes <= 0 || minutes > window {
			continue
		}
		name := ""
		if train.Conductor != nil {
			name = train.Conductor.Pseudo
		}
		data.Departures = append(data.Departures, Departure{
			TrainID:       train.ID,
			ConductorName: name,
			DepartureTime: hhmm,
			MinutesUntil:  minutes,
		})
	}
	slices.SortStableFunc(data.Departures, func(a, b Departure) int {
		return cmp.Compare(a.MinutesUntil, b.MinutesUntil)
	})
	return Measurement{Value: Number(float64(len(data.Departures))), Data: data}, nil
}

// departureInstant combines the train date with its real departure time in
// the configured location. A real time earlier than the nominal time falls
// on the following day.
func (c *Collectors) departureInstant(train *entities.TrainInstance) (time.Time, string, bool) {
	hhmm := train.RealDepartureTime
	if hhmm == "" {
		hhmm = train.DepartureTime
	}
	actual, ok := parseClock(hhmm)
	if !ok {
		return time.Time{}, "", false
	}
	y, m, d := train.Date.UTC().Date()
	at := time.Date(y, m, d, actual/60, actual%60, 0, 0, c.loc)
	if nominal, ok := parseClock(train.DepartureTime); ok && actual < nominal {
		at = at.AddDate(0, 0, 1)
	}
	return at, hhmm, true
}

// parseClock parses HH:MM into minutes after midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

