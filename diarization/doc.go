// Package diarization holds the data model shared by the orchestration
// core (segments, transcript words, synchronized segments, mappings, voice
// profiles) and the capability interfaces backends implement.
//
// # Backends
//
//   - diarization/pyannote: external HTTP segmentation sidecar
//   - diarization/local: on-device model runner driven as a subprocess
//   - identification.LLMIdentifier: name extraction over an llm.Provider
package diarization
