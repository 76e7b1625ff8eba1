// Package parser turns notify payloads into model values. It decides what a
// record means but never touches the statistics store.
package parser

import (
	"log/slog"
)

// Parser provides pure payload -> model conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}
