package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/starford/mdbridge/internal/detect"
	"github.com/starford/mdbridge/internal/engine"
	"github.com/starford/mdbridge/internal/richtext"
)

// ConvertFlags select what Convert writes.
type ConvertFlags struct {
	Tree        bool // write the content tree as JSON instead of Markdown
	HTML        bool // input is editor HTML
	NoWikiLinks bool
	NoMetadata  bool
}

// Convert reads a document from input and writes its normalized Markdown
// (or its tree) to w. It needs no vault or index.
func Convert(w io.Writer, input []byte, flags ConvertFlags, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	eng := engine.New(app.config.Convert.EngineOptions()...)

	if flags.Tree {
		var tree *richtext.Node
		if flags.HTML {
			tree = eng.FromHTML(string(input))
		} else {
			tree = eng.Parse(string(input))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}

	serOpts := eng.Defaults()
	if flags.NoWikiLinks {
		serOpts.PreserveWikiLinks = false
	}
	if flags.NoMetadata {
		serOpts.IncludeMetadata = false
	}

	var md string
	if flags.HTML {
		md, err = eng.ConvertHTML(string(input), serOpts)
	} else {
		md, err = eng.Normalize(string(input), serOpts)
	}
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if md == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, md)
	return err
}

// Detect reports whether input looks like Markdown.
func Detect(input []byte, conservative bool, opts ...Option) (bool, error) {
	app, err := newApplication(opts)
	if err != nil {
		return false, err
	}
	engOpts := app.config.Convert.EngineOptions()
	if conservative {
		engOpts = append(engOpts, engine.WithDetectorMode(detect.Conservative))
	}
	return engine.New(engOpts...).IsMarkdown(string(input)), nil
}
