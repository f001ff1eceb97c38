package prompts

func init() {
	registry := DefaultRegistry()

	registry.Register(&Prompt{
		ID:      "fragment-title",
		Version: PromptV1,
		Content: `You are an assistant that generates a short, descriptive title for a code fragment based on its completion summary.
The title should be:
- Relevant to what was built or changed
- Max 3 words
- Written in title case (e.g. "Landing Page", "Chat Widget")
- No punctuation, quotes, or prefixes

Respond with only the title.`,
		Description: "Generates the fragment title from a run's completion summary",
	})

	registry.Register(&Prompt{
		ID:      "response",
		Version: PromptV1,
		Content: `You are the final agent in a multi-agent system.
Your job is to generate a short, user-friendly message explaining what was just built, based on the completion summary.
The application is custom-made for the user, so do not mention tools, agents, or internal steps.
Reply in a casual tone, as if you're wrapping up the process for the user. No code, no lists, no technical jargon.
Keep it to 1 to 3 sentences.`,
		Description: "Generates the user-facing response from a run's completion summary",
	})
}
