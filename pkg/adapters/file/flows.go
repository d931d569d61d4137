package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/concierge/internal/dto"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// LoadFlows reads a flows file (YAML, or JSON by extension) and returns its flows.
// A missing file yields no flows. Every flow is checked before it is returned.
func LoadFlows(path string) ([]domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Flow{}, nil
		}
		return nil, fmt.Errorf("failed to read flows file: %w", err)
	}
	return ParseFlows(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// ParseFlows decodes flow definitions from YAML or JSON.
func ParseFlows(data []byte, isJSON bool) ([]domain.Flow, error) {
	var raw map[string]any
	if isJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse flows json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse flows yaml: %w", err)
		}
	}

	var file dto.FlowFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &file,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid flows file: %w", err)
	}

	out := make([]domain.Flow, 0, len(file.Flows))
	var errs []error
	for i, def := range file.Flows {
		f := toFlow(def)
		if err := dsl.Check(f); err != nil {
			errs = append(errs, fmt.Errorf("flows[%d] %s: %w", i, def.ID, err))
			continue
		}
		out = append(out, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func toFlow(def dto.FlowDefinition) domain.Flow {
	f := domain.Flow{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		Keywords:    def.Keywords,
		Prefix:      def.Prefix,
		Digits:      def.Digits,
		Text:        def.Text,
		Card: domain.CardSpec{
			TitleFormat: def.Card.TitleFormat,
			Badge:       def.Card.Badge,
			Progress:    def.Card.Progress,
			LastUpdate:  def.Card.LastUpdate,
			NextAction:  def.Card.NextAction,
		},
	}
	for _, l := range def.Card.Lines {
		f.Card.Lines = append(f.Card.Lines, domain.CardLine{Label: l.Label, Keys: l.Keys})
	}
	for _, sd := range def.Steps {
		step := domain.Step{
			ID:          sd.ID,
			Title:       sd.Title,
			SubmitLabel: sd.SubmitLabel,
		}
		for _, fd := range sd.Fields {
			step.Fields = append(step.Fields, domain.FieldSpec{
				Name:        fd.Name,
				Label:       fd.Label,
				Type:        domain.FieldType(strings.ToLower(fd.Type)),
				Required:    fd.Required,
				Placeholder: fd.Placeholder,
				Options:     fd.Options,
			})
		}
		if len(sd.Defaults) > 0 {
			step.Defaults = domain.DraftFromMap(sd.Defaults, nil)
		}
		if sd.When != nil {
			step.When = &domain.Condition{Field: sd.When.Field, Equals: sd.When.Equals}
		}
		f.Steps = append(f.Steps, step)
	}
	return f
}
