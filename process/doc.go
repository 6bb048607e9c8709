// Package process runs external programs with process-group cancellation
// and captured output. The local segmentation backend uses it to drive a
// model runner that prints JSON on stdout.
package process
