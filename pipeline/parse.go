package pipeline

import (
	"net/url"
	"regexp"
	"strings"
)

var pathRegex = regexp.MustCompile(
	"/*" +
		// hash
		"((unsafe/)|([A-Za-z0-9-_=]{8,})/)?" +
		// path
		"(.+)?",
)

var opsRegex = regexp.MustCompile(
	"^" +
		// meta
		"(meta/)?" +
		// op chain and image
		"(.+)?",
)

var opNameRegex = regexp.MustCompile("^[A-Za-z][A-Za-z0-9_-]*\\(")

var breaksCleaner = strings.NewReplacer("\r\n", "", "\r", "", "\n", "", "\v", "", "\f", "", "\u0085", "", "\u2028", "", "\u2029", "")

// Parse Params from endpoint URI
func Parse(path string) Params {
	var p Params
	match := pathRegex.FindStringSubmatch(breaksCleaner.Replace(path))
	if len(match) < 5 {
		return p
	}
	if match[2] == "unsafe/" {
		p.Unsafe = true
	} else if len(match[3]) > 8 {
		p.Hash = match[3]
	}
	p.Path = match[4]

	match = opsRegex.FindStringSubmatch(p.Path)
	if len(match) == 0 {
		return p
	}
	if match[1] != "" {
		p.Meta = true
	}
	if match[2] != "" {
		ops, img := parseOps(match[2])
		p.Ops = append(p.Ops, ops...)
		p.Image = img
		if u, err := url.QueryUnescape(img); err == nil {
			p.Image = u
		}
	}
	return p
}

// parseOps splits the leading op chain from the image path.
// Parentheses nest, so args may carry colons and slashes.
func parseOps(str string) (ops Ops, path string) {
	if !opNameRegex.MatchString(str) {
		return nil, str
	}
	var s strings.Builder
	var depth int
	var name, args string
	for idx, ch := range str {
		switch ch {
		case '(':
			if depth == 0 {
				name = s.String()
				s.Reset()
			} else {
				s.WriteRune(ch)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				args = s.String()
				s.Reset()
			} else {
				s.WriteRune(ch)
			}
		case '/':
			if depth == 0 {
				path = str[idx+1:]
			} else {
				s.WriteRune(ch)
			}
		case ':':
			if depth == 0 {
				ops = append(ops, Op{Name: name, Args: args})
				name = ""
				args = ""
				s.Reset()
			} else {
				s.WriteRune(ch)
			}
		default:
			s.WriteRune(ch)
		}
		if path != "" {
			break
		}
	}
	if name != "" {
		ops = append(ops, Op{Name: name, Args: args})
	}
	return
}

// SplitArgs splits op args by comma outside parentheses, URL unescaping each
func SplitArgs(args string) []string {
	if args == "" {
		return nil
	}
	var res []string
	var s strings.Builder
	var depth int
	flush := func() {
		arg := s.String()
		if u, err := url.PathUnescape(arg); err == nil {
			arg = u
		}
		res = append(res, strings.TrimSpace(arg))
		s.Reset()
	}
	for _, ch := range args {
		switch {
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			flush()
			continue
		}
		s.WriteRune(ch)
	}
	flush()
	return res
}
