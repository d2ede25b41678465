package research

import (
	"fmt"
	"strings"

	"github.com/atozfamily/homescholar/internal/llm"
)

// SearchToolName is the only tool offered to the research model.
const SearchToolName = "search"

var searchTool = llm.Tool{
	Name:        SearchToolName,
	Description: "Search the web for educational resources. Returns a JSON array of {title, url, snippet} objects, or an object with an \"error\" field.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Free-text search query, e.g. \"photosynthesis lesson plans grade 5\"",
			},
		},
		"required":             []any{"query"},
		"additionalProperties": false,
	},
}

var systemPrompt = fmt.Sprintf(`You are a curriculum research assistant helping a homeschooling family plan lessons.

Use the search tool to find high-quality educational resources. Prefer reputable sources: universities, museums, government science agencies and established educational publishers. Avoid content farms, paywalled material and sites without a clear author or institution.

Recommend between %d and %d resources. For each one give its title, its URL exactly as returned by search, and a one or two sentence snippet explaining why it fits the learner.

Respond with a JSON array of {"title", "url", "snippet"} objects and nothing else.`, MinResources, MaxResources)

const budgetSpentPrompt = `

The search budget for this request is spent. Do not call any more tools. Answer now using the results you already have.`

func buildTaskMessage(q Query) string {
	var b strings.Builder

	b.WriteString("Find educational resources for this homeschool unit.\n\n")
	b.WriteString(fmt.Sprintf("Subject: %s\n", q.Subject))
	b.WriteString(fmt.Sprintf("Grade: %s\n", q.Grade))
	b.WriteString(fmt.Sprintf("Topics: %s\n", q.Topics))

	b.WriteString(`
Instructions:
1. Search for resources that cover the topics at this grade level. Refine your query if the first results are weak.
2. Keep only resources a parent could open and use today.
3. Return the final list as a JSON array.`)

	return b.String()
}
