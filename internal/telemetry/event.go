package telemetry

import (
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
)

// Builder stamps events with the interface key and the wall clock.
type Builder struct {
	InterfaceKey string
	Metadata     []string
	Now          func() time.Time
}

func (b Builder) now() int64 {
	if b.Now == nil {
		return domain.Millis(time.Now())
	}
	return domain.Millis(b.Now())
}

func (b Builder) Query(userID, query string) domain.QueryEvent {
	metadata := make([]string, len(b.Metadata))
	copy(metadata, b.Metadata)
	return domain.QueryEvent{
		InterfaceKey: b.InterfaceKey,
		UserID:       userID,
		Query:        query,
		Metadata:     metadata,
		Timestamp:    b.now(),
	}
}

func (b Builder) Results(userID, query string, results []domain.ResultRecord) domain.ResultsEvent {
	return domain.ResultsEvent{
		InterfaceKey: b.InterfaceKey,
		UserID:       userID,
		Query:        query,
		Results:      domain.RefsFor(results),
		Timestamp:    b.now(),
	}
}

func (b Builder) Interaction(userID, query string, rank int, name string) domain.InteractionEvent {
	return domain.InteractionEvent{
		InterfaceKey: b.InterfaceKey,
		UserID:       userID,
		Query:        query,
		ResultName:   name,
		ResultRank:   rank,
		Timestamp:    b.now(),
	}
}

func (b Builder) Conversion(userID, name string, value float64) domain.ConversionEvent {
	return domain.ConversionEvent{
		InterfaceKey: b.InterfaceKey,
		UserID:       userID,
		EventName:    name,
		EventValue:   value,
		Timestamp:    b.now(),
	}
}
