package chatbot

import (
	"fmt"
	"strings"

	"github.com/taakra/engine/internal/models"
)

const systemPrompt = `You are Taakra AI Assistant, a helpful chatbot for the Taakra Competition Platform.
You help users with:
- Finding and understanding competitions
- Registration processes and deadlines
- Platform navigation and features
- General questions about competition categories and rules

Keep responses concise, friendly, and helpful. Use emojis sparingly.
If you don't know something specific about a competition, suggest the user check the competition details page.
Always be encouraging about participation in competitions.`

const dateLayout = "Jan 2, 2006"

// Instruction builds the system instruction with a snapshot of platform data.
func Instruction(active []models.Competition, categories []models.Category) string {
	comps := make([]string, 0, len(active))
	for _, c := range active {
		cat := "General"
		if c.Category != nil && c.Category.Name != "" {
			cat = c.Category.Name
		}
		comps = append(comps, fmt.Sprintf("%q (%s, starts %s, deadline %s, %d registered)",
			c.Title, cat, c.StartDate.Format(dateLayout), c.RegistrationDeadline.Format(dateLayout), c.RegistrationCount))
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	return systemPrompt + "\n\nCurrent platform data:\n" +
		"- Active competitions: " + strings.Join(comps, "; ") + "\n" +
		"- Categories: " + strings.Join(names, ", ") + "\n"
}

// InstructionWithoutData is used when the platform snapshot could not be loaded.
func InstructionWithoutData() string {
	return systemPrompt + "\n\nCould not fetch current platform data."
}
