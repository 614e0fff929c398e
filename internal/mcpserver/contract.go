package mcpserver

// SyntaxContract describes the Markdown dialect the converter reads and
// writes, for LLM consumers producing notes.
const SyntaxContract = `# mdbridge Markdown Syntax

CommonMark with GFM tables, plus the extensions below. Anything that does not
match an extension exactly stays literal text; conversion never fails.

## Inline

| Syntax | Meaning |
|---|---|
| ` + "`**bold**`" + `, ` + "`*italic*`" + ` | strong, emphasis |
| ` + "`~~gone~~`" + ` | strikethrough |
| ` + "`==marked==`" + ` | highlight |
| ` + "`H~2~O`" + `, ` + "`x^2^`" + ` | subscript, superscript |
| ` + "`$E=mc^2$`" + ` | inline math (LaTeX) |
| ` + "`[[Folder/Note]]`" + ` | wiki link |
| ` + "`[[Folder/Note\\|Shown text]]`" + ` | wiki link with display text |
| ` + "`![[image.png]]`" + ` | embedded file |
| ` + "`![Board]`" + ` | link to the canvas ` + "`Board.canvas`" + ` |
| ` + "`[text](url)`" + `, ` + "`![alt](src)`" + ` | link, image |

## Blocks

- Headings ` + "`#`" + ` to ` + "`######`" + `, block quotes, fenced code with a language tag,
  horizontal rules, ordered and bullet lists, GFM tables.
- Display math:

` + "```" + `
$$
\sum_{i=1}^{n} x_i
$$
` + "```" + `

- Embedded canvas on a line of its own: ` + "`![canvas:<fragment-id>:<width>x<height>]`" + `,
  where the fragment id is lowercase hex groups joined by single hyphens.

## Tasks

A list item starting with ` + "`[c]`" + ` is a task; ` + "`c`" + ` selects the state.
An unknown symbol reads as todo.

| Symbol | State | Symbol | State |
|---|---|---|---|
| space | todo | ` + "`x`" + ` | completed |
| ` + "`/`" + ` | in-progress | ` + "`!`" + ` | urgent |
| ` + "`?`" + ` | question | ` + "`-`" + ` | cancelled |
| ` + "`>`" + ` | delegated | ` + "`*`" + ` | starred |
| ` + "`~`" + ` | paused | ` + "`<`" + ` | scheduled |
| ` + "`\"`" + ` | quote | ` + "`i`" + ` | info |
| ` + "`b`" + ` | blocked | ` + "`+`" + ` | added |
| ` + "`w`" + ` | waiting | ` + "`@`" + ` | mentioned |
| ` + "`R`" + ` | review | ` + "`D`" + ` | duplicate |
| ` + "`S`" + ` | started | | |

## Frontmatter

An optional YAML block fenced by ` + "`---`" + ` lines at the very top of the file.
` + "`title`" + ` overrides the first level-1 heading as the note title; ` + "`tags`" + `
is a list merged with inline ` + "`#tags`" + `.

## Example

` + "```" + `markdown
---
title: Launch plan
tags:
  - work
---

# Launch plan

- [/] Draft the ==announcement== for [[Marketing/Q3|Q3]]
- [!] Fix $O(n^2)$ lookup

![canvas:3f2a-9b01:600x400]
` + "```" + `
`
