// Package metrics records conversion and export metrics. Components take a
// Recorder; NoopRecorder is the default when metrics are not served.
package metrics

import "time"

// ResultLabel enumerates conversion result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultInvalid ResultLabel = "invalid"
	ResultError   ResultLabel = "error"
)

// Conversion operations used as the "op" label.
const (
	OpParse     = "parse"
	OpSerialize = "serialize"
	OpHTML      = "html"
	OpDetect    = "detect"
	OpExport    = "export"
)

// Recorder defines observability hooks for conversions and exports.
type Recorder interface {
	ObserveConversion(op string, d time.Duration, result ResultLabel)
	AddExportedFiles(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveConversion(string, time.Duration, ResultLabel) {}
func (NoopRecorder) AddExportedFiles(int)                                {}
