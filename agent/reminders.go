package agent

import (
	"fmt"
	"strings"

	"aiderdesk/model"
)

const importantRemindersHeader = "\n\nTHIS IS IMPORTANT:\n- "

// buildReminders returns the reminders active for the profile, in a fixed order.
func buildReminders(profile model.AgentProfile, settings *model.Settings) []string {
	var reminders []string

	if profile.UseTodoTools {
		reminders = append(reminders, fmt.Sprintf(
			"Always use the TODO list tools to manage the tasks, even if small ones. Before any analyze use %s to check the current list of tasks and in case it's related to the current request, resume the existing tasks.",
			model.ToolName(model.TodoToolGroup, model.TodoToolGetItems),
		))
	}

	if profile.UseSubagents {
		if subagents := settings.AutomaticSubagents(profile.ID); len(subagents) > 0 {
			names := make([]string, len(subagents))
			for i, s := range subagents {
				names[i] = "- " + s.Name
			}
			reminders = append(reminders,
				"Use the following automatic subagents when appropriate based on their descriptions:\n"+strings.Join(names, "\n"))
		}
	}

	if !profile.AutoApprove && !profile.IsSubagent {
		reminders = append(reminders, "Before making any complex changes, present the plan and wait for my approval.")
	}

	return reminders
}

// addImportantReminders appends the active reminders to the user request
// message at index. Plain-text content is extended in place of the string;
// structured content gets a trailing text part. Other messages are untouched.
func addImportantReminders(profile model.AgentProfile, index int, messages []model.Message, settings *model.Settings) []model.Message {
	if index < 0 || index >= len(messages) {
		return messages
	}

	reminders := buildReminders(profile, settings)
	if len(reminders) == 0 {
		return messages
	}

	block := importantRemindersHeader + strings.Join(reminders, "\n- ")

	target := messages[index].Clone()
	if target.IsStructured() {
		target.Parts = append(target.Parts, model.TextPart(block))
	} else {
		target.Text += block
	}

	result := make([]model.Message, len(messages))
	copy(result, messages)
	result[index] = target
	return result
}
