package scenario

import (
	"embed"
	"strings"
)

//go:embed scenarios/*.yaml
var embedded embed.FS

// GetEmbedded returns a built-in scenario by name, without the .yaml
// extension.
func GetEmbedded(name string) (*Scenario, bool) {
	data, err := embedded.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, false
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, false
	}
	return sc, true
}

// ListEmbedded returns the names of the built-in scenarios.
func ListEmbedded() []string {
	entries, err := embedded.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}
	return names
}
