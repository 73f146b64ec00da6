// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cite

import "strings"

// tokenKind discriminates tokenizer output.
type tokenKind int

const (
	tokenText    tokenKind = iota
	tokenBracket           // a [...] citation token; Text holds the inner content
)

// token is one piece of generated section text.
type token struct {
	Kind tokenKind
	Text string
}

// tokenize splits generated text into a stream of text runs and
// bracket-delimited citation tokens in a single pass. Brackets do not nest;
// an unclosed "[" is treated as plain text. Resolution logic then becomes a
// fold over the stream instead of successive global substitutions.
func tokenize(s string) []token {
	var tokens []token
	for len(s) > 0 {
		open := strings.IndexByte(s, '[')
		if open < 0 {
			tokens = append(tokens, token{Kind: tokenText, Text: s})
			break
		}
		closing := strings.IndexByte(s[open:], ']')
		if closing < 0 {
			tokens = append(tokens, token{Kind: tokenText, Text: s})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{Kind: tokenText, Text: s[:open]})
		}
		tokens = append(tokens, token{Kind: tokenBracket, Text: s[open+1 : open+closing]})
		s = s[open+closing+1:]
	}
	return tokens
}
