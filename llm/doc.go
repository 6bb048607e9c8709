// Package llm provides a config-driven LLM adapter used for speaker-name
// extraction.
//
// The adapter works with any LLM provider via the Dialect pattern, similar
// to how database/sql works with driver packages.
//
// # Architecture
//
//   - Universal types: [CompletionRequest], [CompletionResponse], [Message], [Usage]
//   - [Dialect] interface: maps universal types to/from provider-specific HTTP format
//   - [Adapter]: an HTTP client plus a Dialect
//   - Dialect registry: [RegisterDialect] / [GetDialect] for config-driven selection
//   - Helpers: [Complete], [CompleteStructured]
//
// # Usage
//
//	import (
//	    "github.com/ocobra/meeting-minutes-sub000/llm"
//	    _ "github.com/ocobra/meeting-minutes-sub000/llm/ollama"
//	)
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "ollama",
//	    BaseURL: "http://localhost:11434",
//	    Model:   "qwen2.5:1.5b",
//	})
package llm
