package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ActorEntry describes one scripted actor placed at startup.
type ActorEntry struct {
	Name   string    `yaml:"name"`
	X      float64   `yaml:"x"`
	Y      float64   `yaml:"y"`
	Speed  float64   `yaml:"speed"`  // units per second
	Script string    `yaml:"script"` // global Lua function driving the actor
	Args   []float64 `yaml:"args"`   // extra numeric arguments after the entity
	Delay  float64   `yaml:"delay"`  // seconds of tick time before the script starts
}

// Scenario is the list of actors and global fibers to start with.
type Scenario struct {
	Name    string       `yaml:"name"`
	Actors  []ActorEntry `yaml:"actors"`
	Globals []string     `yaml:"globals"` // Lua functions started without an entity
}

// LoadScenario loads scenario.yaml.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	seen := make(map[string]struct{}, len(sc.Actors))
	for i, a := range sc.Actors {
		if a.Name == "" {
			return nil, fmt.Errorf("scenario actor #%d: missing name", i)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("scenario actor %q: duplicate name", a.Name)
		}
		seen[a.Name] = struct{}{}
		if a.Script == "" {
			return nil, fmt.Errorf("scenario actor %q: missing script", a.Name)
		}
		if a.Speed < 0 || a.Delay < 0 {
			return nil, fmt.Errorf("scenario actor %q: speed and delay must not be negative", a.Name)
		}
	}
	return &sc, nil
}

// Count returns the number of fibers the scenario starts.
func (s *Scenario) Count() int {
	return len(s.Actors) + len(s.Globals)
}
