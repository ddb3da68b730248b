package agents

import (
	"github.com/goliatone/go-agent-auth/config"
)

const (
	WebAgentID        = "web_agent"
	WikipediaAgentID  = "wikipedia_agent"
	HackernewsAgentID = "hackernews_agent"
	PythonAgentID     = "python_agent"
)

var sourcedInstructions = []string{"Always include sources"}

var pythonInstructions = []string{
	"You are a Python programming expert.",
	"When creating Python scripts, always provide complete, executable code.",
	"Use clear variable names and add comments to explain the code.",
	"For file operations, use simple filenames without special characters.",
	"When using tools that require boolean parameters, make sure to pass True/False as boolean values, not strings.",
	"For the 'overwrite' parameter, always use the boolean value True or False, never a string.",
	`Example: save_to_file_and_run(code='print("hello")', filename='script.py', overwrite=True)`,
}

// Builtins returns the four preconfigured agents
func Builtins(cfg config.AgentSettings) []Definition {
	model := ModelRef{
		Provider:  ProviderGroq,
		ModelID:   cfg.ModelID,
		APIKeyEnv: cfg.APIKeyEnv,
	}

	base := func(id, name, description string, tool ToolKind, table string, instructions []string) Definition {
		return Definition{
			ID:           id,
			Name:         name,
			Description:  description,
			Model:        model,
			Tools:        []Tool{{Kind: tool}},
			Instructions: append([]string(nil), instructions...),
			Storage: StorageRef{
				TableName: table,
				DBFile:    cfg.DBFile,
			},
			AddDateTimeToInstructions: true,
			AddHistoryToMessages:      true,
			NumHistoryResponses:       DefaultHistoryResponses,
			Markdown:                  true,
		}
	}

	python := base(
		PythonAgentID,
		"Python Agent",
		"Python Agent specializes in creating, debugging, and executing Python code. Can write scripts, solve programming problems, and provide code examples.",
		ToolPython,
		cfg.PythonCollection,
		pythonInstructions,
	)
	python.ShowToolCalls = true

	return []Definition{
		base(
			WebAgentID,
			"Marcwos Agent",
			"Web Agent is a knowledgeable agent that can answer questions about the web.",
			ToolDuckDuckGo,
			cfg.WebCollection,
			sourcedInstructions,
		),
		base(
			WikipediaAgentID,
			"Wikipedia Agent",
			"Wikipedia Agent is a knowledgeable agent that can answer questions about Wikipedia.",
			ToolWikipedia,
			cfg.WikipediaCollection,
			sourcedInstructions,
		),
		base(
			HackernewsAgentID,
			"Hackernews Team",
			"Hackernews Team is a group of hackernews agents that can answer questions about Hackernews.",
			ToolHackernews,
			cfg.HackernewsCollection,
			sourcedInstructions,
		),
		python,
	}
}
