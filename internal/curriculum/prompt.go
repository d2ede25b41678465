package curriculum

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Defaults substituted for blank optional profile fields. Duration has no
// default.
const (
	DefaultLearningStyle     = "Balanced"
	DefaultFocusAreas        = "Core concepts"
	DefaultStateRequirements = "None provided"
)

const systemPrompt = `You are an expert homeschool curriculum designer. Synthesize the research provided into a coherent, practical teaching plan for one child.

The plan must have:
- a title and a short description
- 3-5 clear, measurable learning objectives
- week-by-week lessons covering the whole duration, each with a title and a description of activities

Personalize tone and activities to the learner's style and focus areas. When state requirements are given, align objectives and lessons with them. Draw on the researched resources by name where they fit.

Respond with a single JSON object and nothing else: no prose, no markdown fences.`

// styleHints maps a learning style keyword to extra guidance.
var styleHints = []struct {
	keyword string
	hint    string
}{
	{"kinesthetic", "favor hands-on experiments, building projects and movement-based activities"},
	{"visual", "favor diagrams, charts, videos and illustrated notebooks"},
	{"auditory", "favor read-alouds, discussion, songs and narration"},
	{"reading", "favor reading assignments, journaling and written reflections"},
	{"writing", "favor reading assignments, journaling and written reflections"},
}

func learningStyleHint(style string) string {
	lower := strings.ToLower(style)
	for _, h := range styleHints {
		if strings.Contains(lower, h.keyword) {
			return h.hint
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func buildTaskMessage(req GenerateRequest) string {
	var b strings.Builder
	q := req.ResearchQuery.Normalized()

	b.WriteString("Create a curriculum from this research.\n\n")
	b.WriteString(fmt.Sprintf("Subject: %s\n", q.Subject))
	b.WriteString(fmt.Sprintf("Grade: %s\n", q.Grade))
	b.WriteString(fmt.Sprintf("Topics: %s\n", q.Topics))

	b.WriteString("\nLearner Profile:\n")
	b.WriteString(fmt.Sprintf("Child: %s\n", strings.TrimSpace(req.ChildName)))
	b.WriteString(fmt.Sprintf("Duration: %s\n", DurationLabel(strings.TrimSpace(req.Duration))))
	style := orDefault(req.LearningStyle, DefaultLearningStyle)
	b.WriteString(fmt.Sprintf("Learning style: %s\n", style))
	b.WriteString(fmt.Sprintf("Focus areas: %s\n", orDefault(req.FocusAreas, DefaultFocusAreas)))
	b.WriteString(fmt.Sprintf("State requirements: %s\n", orDefault(req.StateRequirements, DefaultStateRequirements)))

	b.WriteString("\nResearched Resources:\n")
	if len(req.ResearchContext) == 0 {
		b.WriteString("None found. Rely on well-known, freely available materials.\n")
	} else {
		data, _ := json.MarshalIndent(req.ResearchContext, "", "  ")
		b.Write(data)
		b.WriteString("\n")
	}

	b.WriteString(`
Instructions:
1. Write one lesson per week for the full duration.
2. Reference the researched resources in lesson descriptions where they fit.`)
	if hint := learningStyleHint(style); hint != "" {
		b.WriteString("\n3. For this learner, " + hint + ".")
	}

	return b.String()
}
