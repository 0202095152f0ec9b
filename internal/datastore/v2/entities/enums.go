package entities

// Severity ranks an alert rule and the alerts it produces.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelInApp    Channel = "IN_APP"
	ChannelDiscord  Channel = "DISCORD"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelEmail    Channel = "EMAIL"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelDiscord, ChannelTelegram, ChannelEmail:
		return true
	}
	return false
}

// DeliveryStatus is the outcome of one channel delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// TestStatus is the outcome of a channel configuration test-send.
type TestStatus string

const (
	TestSuccess TestStatus = "SUCCESS"
	TestFailed  TestStatus = "FAILED"
)

// Member statuses.
const (
	MemberActive   = "ACTIVE"
	MemberInactive = "INACTIVE"
	MemberLeft     = "LEFT"
)

// Train instance statuses.
const (
	TrainScheduled = "SCHEDULED"
	TrainBoarding  = "BOARDING"
	TrainDeparted  = "DEPARTED"
	TrainCompleted = "COMPLETED"
	TrainCancelled = "CANCELLED"
)
