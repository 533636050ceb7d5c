// Package decompose splits a function literal's source text into the two
// parts that survive an isolation boundary: its positional parameter names
// and its raw body text. The worker rebuilds a callable from those parts on
// the far side, so nothing captured from the caller's environment crosses.
//
// Two literal shapes are recognized:
//
//	function(a, b) { <body> }   -- brace-delimited header, body verbatim
//	function(a, b) <body> end   -- Lua-style literal
//
// Parameter extraction tolerates comments, whitespace and =default suffixes
// in the header. The stripping runs only on the text preceding the body;
// default expressions containing comment-like tokens can defeat it (see the
// package tests, which document that limitation).
package decompose

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNotFunction is returned when source text does not match a recognizable
// function-literal shape.
var ErrNotFunction = errors.New("source does not match a function literal shape")

// Function is a decomposed computation: parameter names in declaration order
// and the body text, verbatim. Params is never nil.
type Function struct {
	Params []string
	Body   string
}

var (
	lineCommentRE  = regexp.MustCompile(`//[^\n\r]*`)
	blockCommentRE = regexp.MustCompile(`/\*.*?\*/`)
)

// IsFunction reports whether src begins with a function-literal header. It is
// the cheap invocability check applied at task construction; full structural
// validation happens in Parse.
func IsFunction(src string) bool {
	s := strings.TrimLeftFunc(src, unicode.IsSpace)
	if !strings.HasPrefix(s, "function") {
		return false
	}
	rest := s[len("function"):]
	if rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == '(' || unicode.IsSpace(r)
}

// Parse decomposes a function literal into its parameter names and body.
// The brace shape is tried first; a source matching neither shape fails with
// an error wrapping ErrNotFunction.
func Parse(src string) (*Function, error) {
	if !IsFunction(src) {
		return nil, fmt.Errorf("no function header: %w", ErrNotFunction)
	}
	if fn, ok := parseBraced(src); ok {
		return fn, nil
	}
	if fn, ok := parseLua(src); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unterminated function literal: %w", ErrNotFunction)
}

// parseBraced handles the brace-delimited shape. The body is everything
// strictly between the first opening brace and the final closing brace of the
// source; nested braces inside the body are preserved verbatim.
func parseBraced(src string) (*Function, bool) {
	open := strings.IndexByte(src, '{')
	if open < 0 {
		return nil, false
	}
	closing := strings.LastIndexByte(src, '}')
	if closing <= open {
		return nil, false
	}
	params, ok := extractParams(src[:open+1])
	if !ok {
		return nil, false
	}
	return &Function{Params: params, Body: src[open+1 : closing]}, true
}

// extractParams isolates the parameter list from the header text, which runs
// through the opening brace so the "){" marker survives stripping.
func extractParams(header string) ([]string, bool) {
	header = stripHeader(header)

	open := strings.IndexByte(header, '(')
	if open < 0 {
		return nil, false
	}
	end := strings.Index(header, "){")
	if end < open {
		return nil, false
	}
	return splitParams(header[open+1 : end]), true
}

// parseLua handles the Lua-style literal. The body is everything strictly
// between the header's closing parenthesis and the final end keyword, which
// must stand apart from the preceding token.
func parseLua(src string) (*Function, bool) {
	trimmed := strings.TrimRightFunc(src, unicode.IsSpace)
	if !strings.HasSuffix(trimmed, "end") {
		return nil, false
	}
	open := strings.IndexByte(trimmed, '(')
	closing := strings.IndexByte(trimmed, ')')
	if open < 0 || closing < open {
		return nil, false
	}
	tail := len(trimmed) - len("end")
	if tail <= closing {
		return nil, false
	}
	if sep := trimmed[tail-1]; sep != ' ' && sep != '\t' && sep != '\n' && sep != '\r' && sep != ';' && sep != ')' {
		return nil, false
	}
	return &Function{
		Params: splitParams(stripHeader(trimmed[open+1 : closing])),
		Body:   trimmed[closing+1 : tail],
	}, true
}

// splitParams splits a stripped parameter list on commas, drops any =default
// suffix per token and discards empty tokens (the zero-parameter case).
func splitParams(list string) []string {
	params := []string{}
	for _, tok := range strings.Split(list, ",") {
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			tok = tok[:eq]
		}
		if tok != "" {
			params = append(params, tok)
		}
	}
	return params
}

// stripHeader runs the token cleanup shared by both shapes. The pass order
// matters: line comments are terminated by newlines, so they must go before
// whitespace removal collapses the lines together.
func stripHeader(s string) string {
	s = lineCommentRE.ReplaceAllString(s, "")
	s = stripSpace(s)
	return blockCommentRE.ReplaceAllString(s, "")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
