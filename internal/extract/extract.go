// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract pulls fenced code regions out of assistant replies.
//
// Replies are treated as Markdown and parsed properly rather than scanned
// with a regexp, so indented fences, ~~~ fences and fences containing
// backticks in their bodies are all handled. The body of a region is the
// exact text between the opening and closing fence; callers trim whitespace
// before use.
package extract

import (
	"iter"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// md is shared by all extractions; a goldmark.Markdown is safe for
// concurrent use.
var md = goldmark.New()

// Block is one fenced code region from a reply.
type Block struct {
	// Language is the fence info tag ("html", "jsx", ...). Informational
	// only; extraction never filters on it.
	Language string

	// Body is the verbatim text between the fences.
	Body string
}

// Blocks returns a lazy sequence of the fenced code regions in input, in
// order of appearance. The sequence is finite and restartable: each range
// re-parses the input.
func Blocks(input string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		src := []byte(input)
		doc := md.Parser().Parse(text.NewReader(src))

		ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			fence, ok := n.(*ast.FencedCodeBlock)
			if !ok {
				return ast.WalkContinue, nil
			}
			if !yield(blockFromFence(fence, src)) {
				return ast.WalkStop, nil
			}
			// Fence bodies are leaves; no need to descend.
			return ast.WalkSkipChildren, nil
		})
	}
}

// All returns every fenced code region in input as a slice.
func All(input string) []Block {
	var out []Block
	for b := range Blocks(input) {
		out = append(out, b)
	}
	return out
}

// First returns the first fenced code region, or false if input contains
// none. This is the block that gets auto-applied to the active file.
func First(input string) (Block, bool) {
	for b := range Blocks(input) {
		return b, true
	}
	return Block{}, false
}

// Joined returns the trimmed bodies of every region joined by two newlines.
// Used for the chat response's aggregate code field.
func Joined(input string) string {
	var parts []string
	for b := range Blocks(input) {
		parts = append(parts, strings.TrimSpace(b.Body))
	}
	return strings.Join(parts, "\n\n")
}

func blockFromFence(fence *ast.FencedCodeBlock, src []byte) Block {
	var body strings.Builder
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		body.Write(seg.Value(src))
	}

	var lang string
	if l := fence.Language(src); l != nil {
		lang = string(l)
	}

	return Block{Language: lang, Body: body.String()}
}
