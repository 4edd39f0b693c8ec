package ui

import "github.com/cloo-solutions/semantrics/internal/coordinator"

// StateMsg carries a coordinator snapshot into the update loop.
type StateMsg struct {
	State coordinator.State
}

// openedMsg reports the result of opening a clicked result.
type openedMsg struct {
	url string
	err error
}
