package control

// Descriptor describes the value range and kind of a control parameter.
type Descriptor struct {
	// Lower is the minimum raw value.
	Lower float64 `yaml:"lower" json:"lower"`

	// Upper is the maximum raw value.
	Upper float64 `yaml:"upper" json:"upper"`

	// Normal is the default value for the parameter.
	Normal float64 `yaml:"normal" json:"normal"`

	// Toggled marks a two-state (on/off) parameter such as mute, as
	// opposed to a continuous scalar such as gain.
	Toggled bool `yaml:"toggled,omitempty" json:"toggled,omitempty"`
}

// GainDescriptor returns the descriptor used for gain-style controls.
func GainDescriptor() Descriptor {
	return Descriptor{Lower: 0, Upper: 2, Normal: 1}
}

// ToggleDescriptor returns the descriptor used for mute-style controls.
func ToggleDescriptor() Descriptor {
	return Descriptor{Lower: 0, Upper: 1, Normal: 0, Toggled: true}
}

// GroupDisposition tells the set path how a value change should interact
// with any control group the control belongs to.
type GroupDisposition string

// Group dispositions.
const (
	// GroupUse applies the change to the whole group.
	GroupUse GroupDisposition = "use_group"

	// GroupNone applies the change to this control only. Changes that
	// originate from a master always use GroupNone.
	GroupNone GroupDisposition = "no_group"
)

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
