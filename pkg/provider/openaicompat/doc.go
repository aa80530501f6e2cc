// Package openaicompat implements provider.Provider for any backend that
// speaks the OpenAI Chat Completions protocol (OpenAI, vLLM, LiteLLM,
// Ollama, Azure OpenAI behind a gateway).
package openaicompat
