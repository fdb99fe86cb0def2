package models

import "fmt"

// Bounds and defaults for per-shop settings.
const (
	MinButtons     = 1
	MaxButtonLimit = 20
	DefaultButtons = 15
)

// Alignment controls where the storefront widget places its buttons.
type Alignment string

// Alignments.
const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Settings is the per-shop display configuration.
type Settings struct {
	MaxButtons int       `json:"max_buttons"`
	Alignment  Alignment `json:"alignment"`
}

// DefaultSettings returns the settings used when a shop has none stored.
func DefaultSettings() Settings {
	return Settings{MaxButtons: DefaultButtons, Alignment: AlignLeft}
}

// UpdateSettingsRequest is the payload for changing settings. Nil fields keep
// their current value.
type UpdateSettingsRequest struct {
	MaxButtons *int       `json:"max_buttons,omitempty"`
	Alignment  *Alignment `json:"alignment,omitempty"`
}

// Validate checks UpdateSettingsRequest fields.
func (r *UpdateSettingsRequest) Validate() error {
	if r.MaxButtons != nil && (*r.MaxButtons < MinButtons || *r.MaxButtons > MaxButtonLimit) {
		return fmt.Errorf("%w: max_buttons must be between %d and %d", ErrInvalidSettings, MinButtons, MaxButtonLimit)
	}

	if r.Alignment != nil {
		switch *r.Alignment {
		case AlignLeft, AlignCenter, AlignRight:
		default:
			return fmt.Errorf("%w: alignment must be left, center or right", ErrInvalidSettings)
		}
	}

	return nil
}

// Apply returns s with the request's non-nil fields applied.
func (r *UpdateSettingsRequest) Apply(s Settings) Settings {
	if r.MaxButtons != nil {
		s.MaxButtons = *r.MaxButtons
	}

	if r.Alignment != nil {
		s.Alignment = *r.Alignment
	}

	return s
}
