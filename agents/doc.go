// Package agents provides the runnables behind "agent" steps.
//
// An agent wraps a model runnable (usually a models.LLM) and a set of tools.
// [Simple] runs the tools that apply to the prompt and hands their results to
// the model as context. [ToolAgent] asks the model to plan first, runs the
// applicable tools and then asks for a final answer over the plan and the
// tool results.
//
//	agent := agents.NewSimple("assistant", llm).
//	    WithSystemPrompt("You are a helpful assistant.").
//	    WithTools(tools.NewMath())
//	out, err := agent.Execute(ctx, "quanto fa 3 + 4?")
//
// Agents write nothing to the ExecutionContext themselves; the chain records
// their output like any other step.
package agents
