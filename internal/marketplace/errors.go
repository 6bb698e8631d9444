package marketplace

import "errors"

var (
	ErrAgentNotFound = errors.New("marketplace: agent not found")
	ErrAgentExists   = errors.New("marketplace: agent already registered")
	ErrTaskNotFound  = errors.New("marketplace: hire task not found")
	ErrInvalidStatus = errors.New("marketplace: invalid agent status")
)
