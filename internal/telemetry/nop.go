package telemetry

import "github.com/cloo-solutions/semantrics/internal/domain"

// Nop discards every event.
type Nop struct{}

func (Nop) LogQuery(string, string) {}

func (Nop) LogResults(string, string, []domain.ResultRecord) {}

func (Nop) LogInteraction(string, string, int, string) {}

func (Nop) LogConversion(string, string, float64) {}
