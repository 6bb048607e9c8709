// Package provider defines the minimal contract shared by swappable
// backends (segmentation sidecars, subprocess models, LLM clients): a name
// and an availability check. Registry builds named instances from
// factories; Probe runs a bounded availability check.
package provider
