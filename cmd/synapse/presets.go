package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is one canned demo scenario.
type Preset struct {
	Name     string `yaml:"name"`
	Scenario string `yaml:"scenario"`
	Origin   string `yaml:"origin,omitempty"`
	Dest     string `yaml:"dest,omitempty"`
}

// builtinPresets cover the four incident playbooks out of the box.
var builtinPresets = []Preset{
	{
		Name:     "traffic",
		Scenario: "Passenger heading to catch flight AI2345, heavy traffic on the way.",
		Origin:   "SRMIST Chennai",
		Dest:     "Chennai International Airport",
	},
	{
		Name:     "merchant",
		Scenario: "Restaurant kitchen is overloaded, prep time around 40 minutes for the order.",
		Origin:   "Guindy",
	},
	{
		Name:     "damage",
		Scenario: "Customer reports the food package arrived spilled with a broken seal and disputes the order.",
	},
	{
		Name:     "recipient",
		Scenario: "Recipient is not home, driver waiting at the door in T Nagar with a parcel.",
		Dest:     "T Nagar",
	},
}

// loadPreset resolves a preset by name, from the given YAML file when one is
// provided, otherwise from the built-in set.
func loadPreset(path, name string) (Preset, error) {
	presets := builtinPresets
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Preset{}, fmt.Errorf("read presets: %w", err)
		}
		var fromFile []Preset
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return Preset{}, fmt.Errorf("parse presets: %w", err)
		}
		presets = fromFile
	}

	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}

	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return Preset{}, fmt.Errorf("unknown preset %q (have: %s)", name, strings.Join(names, ", "))
}
