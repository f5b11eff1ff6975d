// Package control implements automatable parameter controls and their
// master/slave composition.
//
// A Control holds one clamped scalar parameter with an optional
// automation envelope and change/destroy events. A SlavableControl
// extends it with a registry of master controls: continuous parameters
// compose multiplicatively through per-master ratios, toggled ones
// compose as boolean OR. Masters may themselves be slaved, forming
// chains; chained behaviour is reached through the SubMaster capability
// interface, never through type inspection.
//
// Detaching a master is value-preserving: the master's contribution is
// baked into the raw value at detach time, so the effective value does
// not move.
//
// The render-path entry points (MastersCurveMultiply,
// BooleanAutomationRun) avoid blocking and allocation; see their
// comments for the stability guarantees they require from the caller.
package control
