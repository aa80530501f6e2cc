// Package provider defines the interface to the language models that select
// tools, write code, review answers and summarize knowledge. Each backend
// (OpenAI-compatible HTTP, Anthropic, Gemini) lives in its own subpackage and
// handles its own wire protocol; callers only see Request and Response.
package provider
