package chatbot

import (
	"strings"
	"unicode"
)

type rule struct {
	match func(msg string, words map[string]bool) bool
	reply string
}

func anyOf(subs ...string) func(string, map[string]bool) bool {
	return func(msg string, _ map[string]bool) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

var fallbackRules = []rule{
	{
		// whole words only, "hi" would otherwise match "this"
		match: func(_ string, words map[string]bool) bool {
			return words["hello"] || words["hi"] || words["hey"]
		},
		reply: "👋 Hello! Welcome to Taakra! I'm your AI assistant. I can help you find competitions, understand registration processes, and navigate the platform. What would you like to know?",
	},
	{
		match: func(msg string, w map[string]bool) bool {
			return strings.Contains(msg, "competition") && anyOf("find", "search", "browse")(msg, w)
		},
		reply: "🔍 You can browse all competitions from your Dashboard! Use the search bar to find specific competitions, filter by category, or sort by newest/popular/trending. Check out the Calendar view for a timeline perspective!",
	},
	{
		match: anyOf("register", "sign up", "join"),
		reply: "📝 To register for a competition:\n1. Browse competitions from the Dashboard\n2. Click on a competition to view details\n3. Click the 'Register' button\n4. Your registration will be pending until an admin confirms it\n\nMake sure to register before the deadline!",
	},
	{
		match: anyOf("deadline", "when"),
		reply: "⏰ Each competition has its own registration deadline. You can find the exact date on the competition details page. Check the Calendar view for a visual overview of all upcoming deadlines!",
	},
	{
		match: anyOf("category", "categories"),
		reply: "📂 Competitions are organized by categories. You can filter competitions by category using the filter bar on the Dashboard. Categories include various fields and topics!",
	},
	{
		match: anyOf("help", "support"),
		reply: "🆘 I'm here to help! You can:\n• Ask me about competitions and registration\n• Use the Chat feature to talk to support staff\n• Browse the FAQ on the website\n\nWhat specific help do you need?",
	},
	{
		match: anyOf("profile", "account"),
		reply: "👤 You can manage your profile from the Profile page! There you can update your name, avatar, and change your password. Check 'My Competitions' to see all your registrations and their status.",
	},
}

const defaultReply = "🤖 I'm Taakra AI Assistant! I can help you with:\n• Finding competitions\n• Registration process\n• Understanding deadlines\n• Platform navigation\n\nPlease ask me a specific question and I'll do my best to help!"

// Fallback returns the canned answer for the first matching keyword rule.
func Fallback(message string) string {
	msg := strings.ToLower(message)
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(msg, func(r rune) bool { return !unicode.IsLetter(r) }) {
		words[w] = true
	}
	for _, r := range fallbackRules {
		if r.match(msg, words) {
			return r.reply
		}
	}
	return defaultReply
}
