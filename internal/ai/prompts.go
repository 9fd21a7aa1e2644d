package ai

import (
	"fmt"
	"strings"

	"github.com/matheus3301/groupweaver/internal/model"
)

// maxPromptMembers caps how many member names a naming prompt lists.
const maxPromptMembers = 10

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func analysisPrompt(lists []model.BroadcastList, common []model.Contact) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant helping analyze WhatsApp broadcast lists.\n\n")
	b.WriteString("Given these broadcast lists:\n")
	for _, l := range lists {
		fmt.Fprintf(&b, "- %q with %d members\n", orUnknown(l.Name), len(l.Members))
	}
	b.WriteString("\nAnd these common members found across all selected lists:\n")
	for _, m := range common {
		fmt.Fprintf(&b, "- %s (%s)\n", orUnknown(m.Name), orUnknown(m.Phone))
	}
	b.WriteString(`
Provide a brief analysis (2-3 sentences) about:
1. What type of group these common members might represent
2. A suggested name for a new broadcast list containing these common members

Respond in JSON format:
{
  "analysis": "your analysis here",
  "suggestedName": "suggested list name",
  "confidence": "high/medium/low"
}`)
	return b.String()
}

func namePrompt(members []model.Contact, existing []string) string {
	var b strings.Builder
	b.WriteString("You are helping name a WhatsApp broadcast list.\n\n")
	b.WriteString("The list contains these members:\n")
	for i, m := range members {
		if i == maxPromptMembers {
			fmt.Fprintf(&b, "... and %d more\n", len(members)-maxPromptMembers)
			break
		}
		fmt.Fprintf(&b, "- %s\n", orUnknown(m.Name))
	}

	avoid := "none"
	if len(existing) > 0 {
		avoid = strings.Join(existing, ", ")
	}
	fmt.Fprintf(&b, "\nExisting list names to avoid: %s\n", avoid)
	b.WriteString(`
Suggest 3 creative but professional names for this broadcast list.

Respond in JSON format:
{
  "suggestions": ["Name 1", "Name 2", "Name 3"],
  "bestPick": "Name 1",
  "reasoning": "brief explanation"
}`)
	return b.String()
}

func insightsPrompt(lists []model.BroadcastList) string {
	var b strings.Builder
	b.WriteString("Analyze these WhatsApp broadcast lists and provide insights:\n\n")
	for _, l := range lists {
		fmt.Fprintf(&b, "- %q: %d members\n", orUnknown(l.Name), len(l.Members))
	}
	b.WriteString(`
Provide brief insights (2-3 points) about:
1. Any patterns you notice
2. Suggestions for better organization
3. Potential improvements

Respond in JSON format:
{
  "insights": ["insight 1", "insight 2", "insight 3"],
  "recommendation": "main recommendation"
}`)
	return b.String()
}
