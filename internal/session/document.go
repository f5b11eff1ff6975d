package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/itmuckel/ardour/internal/automation"
	"github.com/itmuckel/ardour/internal/control"
)

// Document is the serialised form of a session: its identity and every
// control with its envelope and master assignments.
type Document struct {
	Session  SessionInfo       `yaml:"session"`
	Controls []ControlDocument `yaml:"controls"`
}

// SessionInfo carries the session identity in a document.
type SessionInfo struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ControlDocument is the serialised form of one control.
type ControlDocument struct {
	ID         string                `yaml:"id"`
	Name       string                `yaml:"name"`
	Descriptor control.Descriptor    `yaml:"descriptor"`
	Value      float64               `yaml:"value"`
	Automation *AutomationDocument   `yaml:"automation,omitempty"`
	Masters    []control.MasterState `yaml:"masters,omitempty"`
}

// AutomationDocument is the serialised form of a control's envelope.
type AutomationDocument struct {
	State  automation.State          `yaml:"state"`
	Events []automation.ControlEvent `yaml:"events,omitempty"`
}

// Snapshot serialises the session's current state. Controls are ordered
// by ID so successive snapshots of the same state are byte-identical.
func (s *Session) Snapshot() *Document {
	doc := &Document{
		Session: SessionInfo{ID: s.id, Name: s.name},
	}

	for _, c := range s.Controls() {
		cd := ControlDocument{
			ID:         c.ID(),
			Name:       c.Name(),
			Descriptor: c.Describe(),
			Value:      c.RawValue(),
			Masters:    c.MastersState(),
		}
		if l := c.List(); l != nil {
			cd.Automation = &AutomationDocument{
				State:  l.AutomationState(),
				Events: l.Events(),
			}
		}
		doc.Controls = append(doc.Controls, cd)
	}
	return doc
}

// Restore rebuilds the session's controls from a document.
//
// Loading runs in two phases: first every control is created and its
// master assignments stashed, then the stashes are resolved against the
// complete registry. Assignments naming controls absent from the
// document are dropped silently.
func (s *Session) Restore(doc *Document) error {
	if doc.Session.ID != "" {
		s.id = doc.Session.ID
	}
	if doc.Session.Name != "" {
		s.name = doc.Session.Name
	}

	for _, cd := range doc.Controls {
		c := control.RestoreSlavableControl(cd.ID, cd.Name, cd.Descriptor)
		c.SetValueUnchecked(cd.Value)

		if cd.Automation != nil {
			l := automation.NewList(cd.Descriptor.Normal)
			for _, ev := range cd.Automation.Events {
				l.Add(ev.When, ev.Value)
			}
			l.SetState(cd.Automation.State)
			c.SetList(l)
		}

		c.SetMastersState(cd.Masters)

		if err := s.restoreControl(c); err != nil {
			return fmt.Errorf("restoring control %s: %w", cd.ID, err)
		}
	}

	lookup := func(id string) control.Master {
		c, err := s.Control(id)
		if err != nil {
			return nil
		}
		return c
	}
	for _, c := range s.Controls() {
		c.ResolvePendingMasters(lookup)
	}

	s.logger.Info("session restored", "id", s.id, "controls", len(doc.Controls))
	return nil
}

// Save writes the session snapshot as YAML to the given path, creating
// parent directories as needed.
func (s *Session) Save(path string) error {
	data, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}

	s.logger.Info("session saved", "path", path)
	return nil
}

// Load reads a YAML session document from the given path and restores
// it into the session.
func (s *Session) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading session file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing session file: %w", err)
	}

	return s.Restore(&doc)
}
