// Package frontmatter splits and composes the YAML metadata block that may
// lead a Markdown document.
package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Split separates a leading YAML block (between --- lines) from the body.
// When there is no block, or the block is not a YAML mapping, the whole input
// is returned as body and ok is false.
func Split(data []byte) (meta map[string]any, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	// The opening delimiter must be a line of its own.
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return nil, string(data), false
	}
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), false
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	// Closing delimiter must also end its line.
	if len(after) > 0 && after[0] != '\n' && after[0] != '\r' {
		return nil, string(data), false
	}

	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, string(data), false
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, strings.TrimLeft(string(after), "\n\r"), true
}

// Add prepends metadata as a frontmatter block to body. Empty metadata
// returns body unchanged. Keys are written in sorted order, multi-line
// strings as literal blocks and slices as block sequences.
func Add(body string, metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return body, nil
	}

	node, err := mappingNode(metadata)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}

	var out strings.Builder
	out.Grow(buf.Len() + len(body) + 16)
	out.WriteString(delim + "\n")
	out.Write(buf.Bytes())
	out.WriteString(delim + "\n\n")
	out.WriteString(body)
	return out.String(), nil
}

func mappingNode(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		v, err := valueNode(m[k])
		if err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			v,
		)
	}
	return node, nil
}

func valueNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: x}
		if strings.Contains(x, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n, nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range x {
			item, _ := valueNode(s)
			seq.Content = append(seq.Content, item)
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			item, err := valueNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, item)
		}
		return seq, nil
	case map[string]any:
		return mappingNode(x)
	default:
		var n yaml.Node
		if err := n.Encode(x); err != nil {
			return nil, err
		}
		return &n, nil
	}
}
