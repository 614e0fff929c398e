// Package engine bundles the Markdown parser, the detector, the serializer
// and the HTML adapter behind one immutable value. An Engine is built once at
// startup and handed to whatever needs conversions; it is safe for
// concurrent use.
package engine

import (
	"fmt"
	"time"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/detect"
	"github.com/starford/mdbridge/internal/htmltree"
	"github.com/starford/mdbridge/internal/markdown"
	"github.com/starford/mdbridge/internal/metrics"
	"github.com/starford/mdbridge/internal/richtext"
	"github.com/starford/mdbridge/internal/serializer"
)

// Engine converts between Markdown, HTML and rich content trees.
type Engine struct {
	parser   *markdown.Parser
	detector *detect.Detector
	defaults serializer.Options
	recorder metrics.Recorder
}

type settings struct {
	parserOpts []markdown.Option
	detectOpts []detect.Option
	defaults   serializer.Options
	recorder   metrics.Recorder
}

// Option configures an Engine.
type Option func(*settings)

// WithDetectorMode sets the detector's heuristic mode.
func WithDetectorMode(m detect.Mode) Option {
	return func(s *settings) { s.detectOpts = append(s.detectOpts, detect.WithMode(m)) }
}

// WithMinLength sets the shortest input the detector considers.
func WithMinLength(n int) Option {
	return func(s *settings) { s.detectOpts = append(s.detectOpts, detect.WithMinLength(n)) }
}

// WithSerializeOptions sets the options returned by Defaults.
func WithSerializeOptions(o serializer.Options) Option {
	return func(s *settings) { s.defaults = o }
}

// WithCanvasResolver marks parsed canvas links as broken when r cannot find them.
func WithCanvasResolver(r markdown.CanvasResolver) Option {
	return func(s *settings) { s.parserOpts = append(s.parserOpts, markdown.WithCanvasResolver(r)) }
}

// WithRecorder reports conversion counts and durations to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	s := &settings{
		defaults: serializer.DefaultOptions(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Engine{
		parser:   markdown.NewParser(s.parserOpts...),
		detector: detect.New(s.detectOpts...),
		defaults: s.defaults,
		recorder: s.recorder,
	}
}

// Defaults returns the serializer options configured for this engine.
func (e *Engine) Defaults() serializer.Options { return e.defaults }

// DetectorMode returns the detector's heuristic mode.
func (e *Engine) DetectorMode() detect.Mode { return e.detector.Mode() }

// Parse converts Markdown into a document tree. It never fails.
func (e *Engine) Parse(md string) *richtext.Node {
	start := time.Now()
	doc := e.parser.Parse([]byte(md))
	e.recorder.ObserveConversion(metrics.OpParse, time.Since(start), metrics.ResultSuccess)
	return doc
}

// Analyze parses a note and extracts its title, tags, links and tasks.
func (e *Engine) Analyze(data []byte) *markdown.Note {
	start := time.Now()
	note := e.parser.Analyze(data)
	e.recorder.ObserveConversion(metrics.OpParse, time.Since(start), metrics.ResultSuccess)
	return note
}

// Serialize renders tree as Markdown.
func (e *Engine) Serialize(tree *richtext.Node, opts serializer.Options) (string, error) {
	start := time.Now()
	out, err := serializer.Serialize(tree, opts)
	e.recorder.ObserveConversion(metrics.OpSerialize, time.Since(start), result(err))
	if err != nil {
		return "", fmt.Errorf("engine: serialize: %w", err)
	}
	return out, nil
}

// IsMarkdown reports whether text looks like Markdown.
func (e *Engine) IsMarkdown(text string) bool {
	start := time.Now()
	ok := e.detector.IsMarkdown(text)
	e.recorder.ObserveConversion(metrics.OpDetect, time.Since(start), metrics.ResultSuccess)
	return ok
}

// FromHTML converts editor HTML into a document tree.
func (e *Engine) FromHTML(html string) *richtext.Node {
	start := time.Now()
	doc := htmltree.Parse(html)
	e.recorder.ObserveConversion(metrics.OpHTML, time.Since(start), metrics.ResultSuccess)
	return doc
}

// ConvertHTML converts editor HTML straight to Markdown.
func (e *Engine) ConvertHTML(html string, opts serializer.Options) (string, error) {
	return e.Serialize(e.FromHTML(html), opts)
}

// Normalize re-emits Markdown through the parser and serializer.
func (e *Engine) Normalize(md string, opts serializer.Options) (string, error) {
	return e.Serialize(e.Parse(md), opts)
}

// TextArg returns v as text. Any value other than a string or byte slice is
// reported as apperr.ErrInvalidArgument.
func TextArg(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case nil:
		return "", fmt.Errorf("%w: text is required", apperr.ErrInvalidArgument)
	}
	return "", fmt.Errorf("%w: text must be a string, got %T", apperr.ErrInvalidArgument, v)
}

func result(err error) metrics.ResultLabel {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
