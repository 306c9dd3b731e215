package kafka

// Topic names for the ticketing event stream. Downstream consumers
// (reconciliation jobs, attendance dashboards) subscribe to these.
const (
	TopicTicketIssued   = "ticket-issued"
	TopicCheckinToggled = "checkin-toggled"
)
