package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CommandConfig binds an external command to the completion of a flow.
type CommandConfig struct {
	// Flow is the flow ID the command reacts to; "*" matches every flow.
	Flow        string            `yaml:"flow" json:"flow"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of commands.yaml.
type ConfigFile struct {
	Commands []CommandConfig `yaml:"commands" json:"commands"`
}

// LoadCommands reads a configuration file (YAML or JSON) and returns the commands
// grouped by flow ID. A missing file means no commands.
func LoadCommands(path string) (map[string][]CommandConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]CommandConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read commands config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse commands json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse commands yaml: %w", err)
		}
	}

	out := make(map[string][]CommandConfig)
	for _, c := range cfg.Commands {
		if c.Flow == "" || c.Command == "" {
			continue
		}
		out[c.Flow] = append(out[c.Flow], c)
	}
	return out, nil
}
