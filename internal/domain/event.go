package domain

import "time"

// EventKind identifies a telemetry event variant. The value doubles as the
// collector endpoint path.
type EventKind string

const (
	EventQuery       EventKind = "query"
	EventResults     EventKind = "results"
	EventInteraction EventKind = "interaction"
	EventConversion  EventKind = "conversion"
)

// AllEventKinds lists the variants in lifecycle order.
var AllEventKinds = []EventKind{EventQuery, EventResults, EventInteraction, EventConversion}

// Event is implemented by every telemetry event variant.
type Event interface {
	Kind() EventKind
	User() string
}

// QueryEvent is emitted when a search is dispatched.
type QueryEvent struct {
	InterfaceKey string   `json:"interfaceKey"`
	UserID       string   `json:"userId"`
	Query        string   `json:"query"`
	Metadata     []string `json:"metadata"`
	Timestamp    int64    `json:"queryTime"`
}

func (e QueryEvent) Kind() EventKind { return EventQuery }
func (e QueryEvent) User() string { return e.UserID }

// ResultRef is the slice of a ResultRecord reported to the collector.
type ResultRef struct {
	EntityID  string `json:"entityId"`
	Name      string `json:"name"`
	TargetURL string `json:"url"`
	Rank      int    `json:"index"`
}

// ResultsEvent is emitted once per settled query.
type ResultsEvent struct {
	InterfaceKey string      `json:"interfaceKey"`
	UserID       string      `json:"userId"`
	Query        string      `json:"query"`
	Results      []ResultRef `json:"results"`
	Timestamp    int64       `json:"resultReturnTime"`
}

func (e ResultsEvent) Kind() EventKind { return EventResults }
func (e ResultsEvent) User() string { return e.UserID }

// InteractionEvent is emitted when a displayed result is activated.
type InteractionEvent struct {
	InterfaceKey string `json:"interfaceKey"`
	UserID       string `json:"userId"`
	Query        string `json:"query"`
	ResultName   string `json:"resultName"`
	ResultRank   int    `json:"resultRow"`
	Timestamp    int64  `json:"interactionTime"`
}

func (e InteractionEvent) Kind() EventKind { return EventInteraction }
func (e InteractionEvent) User() string { return e.UserID }

// ConversionEvent is emitted when the user reaches a business goal.
type ConversionEvent struct {
	InterfaceKey string  `json:"interfaceKey"`
	UserID       string  `json:"userId"`
	EventName    string  `json:"eventName"`
	EventValue   float64 `json:"eventValue"`
	Timestamp    int64   `json:"conversionTime"`
}

func (e ConversionEvent) Kind() EventKind { return EventConversion }
func (e ConversionEvent) User() string { return e.UserID }

// RefsFor converts ranked records to the collector's result shape.
func RefsFor(records []ResultRecord) []ResultRef {
	refs := make([]ResultRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, ResultRef{
			EntityID:  r.EntityID,
			Name:      r.Title,
			TargetURL: r.TargetURL,
			Rank:      r.Rank,
		})
	}
	return refs
}

// Millis converts t to wall-clock Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
