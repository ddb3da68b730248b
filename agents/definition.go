package agents

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ToolKind names the single external tool an agent can call
type ToolKind string

const (
	ToolDuckDuckGo ToolKind = "duckduckgo"
	ToolWikipedia  ToolKind = "wikipedia"
	ToolHackernews ToolKind = "hackernews"
	ToolPython     ToolKind = "python"
)

// ProviderGroq is the only model provider agents are configured with
const ProviderGroq = "groq"

// DefaultHistoryResponses is how many past responses are replayed to the model
const DefaultHistoryResponses = 5

// ModelRef points an agent at a hosted model. The API key itself never
// lives in a definition, only the environment variable that holds it.
type ModelRef struct {
	Provider  string `json:"provider"`
	ModelID   string `json:"model_id"`
	APIKeyEnv string `json:"api_key_env"`
}

// Validate will run validation rules
func (m ModelRef) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Provider, validation.Required, validation.In(ProviderGroq)),
		validation.Field(&m.ModelID, validation.Required),
		validation.Field(&m.APIKeyEnv, validation.Required),
	)
}

type Tool struct {
	Kind ToolKind `json:"kind"`
}

// Validate will run validation rules
func (t Tool) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Kind, validation.Required, validation.In(
			ToolDuckDuckGo,
			ToolWikipedia,
			ToolHackernews,
			ToolPython,
		)),
	)
}

// StorageRef is where the agent runtime keeps conversation history
type StorageRef struct {
	TableName string `json:"table_name"`
	DBFile    string `json:"db_file"`
}

// Validate will run validation rules
func (s StorageRef) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.TableName, validation.Required),
		validation.Field(&s.DBFile, validation.Required),
	)
}

// Definition is the static configuration of one agent
type Definition struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Model        ModelRef   `json:"model"`
	Tools        []Tool     `json:"tools"`
	Instructions []string   `json:"instructions"`
	Storage      StorageRef `json:"storage"`

	AddDateTimeToInstructions bool `json:"add_datetime_to_instructions"`
	AddHistoryToMessages      bool `json:"add_history_to_messages"`
	NumHistoryResponses       int  `json:"num_history_responses"`
	Markdown                  bool `json:"markdown"`
	ShowToolCalls             bool `json:"show_tool_calls"`
}

// Tool returns the single tool of the agent
func (d Definition) Tool() Tool {
	if len(d.Tools) == 0 {
		return Tool{}
	}
	return d.Tools[0]
}

// Validate will run validation rules
func (d Definition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Model),
		validation.Field(&d.Tools, validation.Required, validation.By(singleTool)),
		validation.Field(&d.Storage),
		validation.Field(&d.NumHistoryResponses, validation.Required, validation.Min(1)),
	)
}

func singleTool(value any) error {
	tools, _ := value.([]Tool)
	if len(tools) != 1 {
		return errors.New("an agent must have exactly one tool")
	}
	return tools[0].Validate()
}
