package curriculum

import "github.com/atozfamily/homescholar/internal/llm"

// Schema is the JSON shape the synthesizer requests and Parse enforces.
var Schema = &llm.Schema{
	Name:        "curriculum",
	Description: "A homeschool curriculum plan with objectives and week-by-week lessons",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short, engaging title for the curriculum",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Two or three sentence overview of the plan",
			},
			"objectives": map[string]any{
				"type":        "array",
				"description": "3-5 measurable learning objectives",
				"items":       map[string]any{"type": "string"},
			},
			"lessons": map[string]any{
				"type":        "array",
				"description": "Week-by-week lessons in teaching order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Lesson title, prefixed with its week, e.g. \"Week 1: ...\"",
						},
						"description": map[string]any{
							"type":        "string",
							"description": "Activities and resources for the week",
						},
					},
					"required":             []any{"title", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "description", "objectives", "lessons"},
		"additionalProperties": false,
	},
}
