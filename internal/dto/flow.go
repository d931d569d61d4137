package dto

// FlowFile is the top level of a flows file (YAML or JSON).
type FlowFile struct {
	Flows []FlowDefinition `json:"flows" mapstructure:"flows"`
}

// FlowDefinition is the on-disk shape of a flow.
// It uses "mapstructure" tags so YAML and JSON decode through the same path.
type FlowDefinition struct {
	ID          string           `json:"id" mapstructure:"id"`
	Title       string           `json:"title" mapstructure:"title"`
	Description string           `json:"description" mapstructure:"description"`
	Keywords    []string         `json:"keywords" mapstructure:"keywords"`
	Prefix      string           `json:"prefix" mapstructure:"prefix"`
	Digits      int              `json:"digits" mapstructure:"digits"`
	Text        string           `json:"text" mapstructure:"text"`
	Steps       []StepDefinition `json:"steps" mapstructure:"steps"`
	Card        CardDefinition   `json:"card" mapstructure:"card"`
}

type StepDefinition struct {
	ID          string            `json:"id" mapstructure:"id"`
	Title       string            `json:"title" mapstructure:"title"`
	SubmitLabel string            `json:"submit_label" mapstructure:"submit_label"`
	Fields      []FieldDefinition `json:"fields" mapstructure:"fields"`
	Defaults    map[string]string `json:"defaults" mapstructure:"defaults"`
	When        *WhenDefinition   `json:"when" mapstructure:"when"`
}

type FieldDefinition struct {
	Name        string   `json:"name" mapstructure:"name"`
	Label       string   `json:"label" mapstructure:"label"`
	Type        string   `json:"type" mapstructure:"type"`
	Required    bool     `json:"required" mapstructure:"required"`
	Placeholder string   `json:"placeholder" mapstructure:"placeholder"`
	Options     []string `json:"options" mapstructure:"options"`
}

type WhenDefinition struct {
	Field  string   `json:"field" mapstructure:"field"`
	Equals []string `json:"equals" mapstructure:"equals"`
}

type CardDefinition struct {
	TitleFormat string           `json:"title_format" mapstructure:"title_format"`
	Badge       string           `json:"badge" mapstructure:"badge"`
	Lines       []LineDefinition `json:"lines" mapstructure:"lines"`
	Progress    *int             `json:"progress" mapstructure:"progress"`
	LastUpdate  string           `json:"last_update" mapstructure:"last_update"`
	NextAction  string           `json:"next_action" mapstructure:"next_action"`
}

type LineDefinition struct {
	Label string   `json:"label" mapstructure:"label"`
	Keys  []string `json:"keys" mapstructure:"keys"`
}
