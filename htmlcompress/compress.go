// Package htmlcompress minifies rendered HTML at the token level.
//
// Comments are dropped (conditional comments are kept) and runs of
// whitespace become a single space. Whitespace-only text spanning a line
// break is removed, except between two inline neighbours such as
// "<b>a</b>\n<i>b</i>", where it still renders as a space and is kept as
// one. Content inside pre, textarea, script and style is copied verbatim.
package htmlcompress

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

var preserved = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// inlineElements are the phrasing elements whose surrounding whitespace is
// visible on the page.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true,
	"button": true, "cite": true, "code": true, "data": true, "dfn": true,
	"em": true, "i": true, "img": true, "input": true, "kbd": true,
	"label": true, "mark": true, "q": true, "s": true, "samp": true,
	"select": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true,
}

// Compress reads HTML from r and writes the compressed document to w.
func Compress(r io.Reader, w io.Writer) error {
	z := html.NewTokenizer(r)
	var stack []string

	// pending is set after a dropped line break; inline tracks whether the
	// last token written was text or an inline element.
	pending, inline := false, false
	emit := func(b []byte, nextInline bool) error {
		if pending && inline && nextInline {
			if _, err := w.Write([]byte{' '}); err != nil {
				return errors.WithStack(err)
			}
		}
		pending = false
		inline = nextInline
		_, err := w.Write(b)
		return errors.WithStack(err)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return nil
			}
			return errors.Wrap(z.Err(), "tokenizing html")

		case html.TextToken:
			raw := z.Raw()
			if len(stack) > 0 {
				if _, err := w.Write(raw); err != nil {
					return errors.WithStack(err)
				}
				continue
			}
			text := collapse(raw)
			if text == nil {
				pending = len(raw) > 0
				continue
			}
			if err := emit(text, true); err != nil {
				return err
			}

		case html.CommentToken:
			raw := z.Raw()
			if !conditional(raw) {
				continue
			}
			if _, err := w.Write(raw); err != nil {
				return errors.WithStack(err)
			}

		default:
			tok := z.Token()
			switch tt {
			case html.StartTagToken:
				if preserved[tok.Data] {
					stack = append(stack, tok.Data)
				}
			case html.EndTagToken:
				if n := len(stack); n > 0 && stack[n-1] == tok.Data {
					stack = stack[:n-1]
				}
			}
			isInline := tt != html.DoctypeToken && inlineElements[tok.Data]
			if err := emit([]byte(tok.String()), isInline); err != nil {
				return err
			}
		}
	}
}

// String compresses a whole document held in memory.
func String(s string) (string, error) {
	var buf bytes.Buffer
	if err := Compress(strings.NewReader(s), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func collapse(text []byte) []byte {
	if len(bytes.TrimSpace(text)) == 0 {
		if bytes.ContainsAny(text, "\n\r") || len(text) == 0 {
			return nil
		}
		return []byte{' '}
	}

	out := make([]byte, 0, len(text))
	space := false
	for _, b := range text {
		if isSpace(b) {
			if !space {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, b)
	}
	return out
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func conditional(raw []byte) bool {
	body := bytes.TrimPrefix(raw, []byte("<!--"))
	return bytes.HasPrefix(body, []byte("[if")) || bytes.HasPrefix(body, []byte("<![endif]"))
}
