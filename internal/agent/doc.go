// Package agent runs the conversation between a user message, the language
// model and the calendar tools.
//
// Loop.Run submits the system prompt, the tool catalog and the transcript,
// executes every tool the model asks for, feeds the results back and repeats
// until the model answers in text or the round limit is reached. Providers
// plug in through the Model interface; Anthropic and OpenAI adapters are
// included.
package agent
