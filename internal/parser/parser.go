// Package parser routes raw monitoring payloads to the adapter that
// recognizes them and produces a canonical Alert.
package parser

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// Adapter converts one monitoring source's payload format into an Alert.
// Adapters must be side-effect free.
type Adapter interface {
	// SourceType returns the adapter identifier (e.g. "cloudwatch").
	SourceType() string

	// CanHandle reports whether this adapter claims the payload.
	CanHandle(raw []byte) bool

	// ParseAlert parses a claimed payload. A nil alert with nil error
	// signals a skippable event (e.g. an OK/recovery transition).
	ParseAlert(raw []byte) (*models.Alert, error)
}

// Registry selects the first registered adapter that claims a payload.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry with the given adapters in priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Register appends an adapter. Registration order is claim order.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Parse routes the payload to the first adapter whose CanHandle returns true.
// No fallthrough: the claiming adapter owns the payload. Returns (nil, nil)
// when the adapter signals a skippable event.
func (r *Registry) Parse(raw []byte) (*models.Alert, error) {
	for _, a := range r.adapters {
		if !a.CanHandle(raw) {
			continue
		}
		alert, err := a.ParseAlert(raw)
		if err != nil {
			return nil, errors.Parsef("parse_alert", a.SourceType(), err)
		}
		if alert == nil {
			log.Debug().Str("source", a.SourceType()).Msg("Adapter signalled skippable event")
			return nil, nil
		}
		if verr := alert.Validate(); verr != nil {
			return nil, errors.Parsef("parse_alert", a.SourceType(), verr)
		}
		return alert, nil
	}
	return nil, errors.Parsef("parse_alert", "", fmt.Errorf("no adapter claims payload"))
}
