package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// GeneratePath generate path by Params struct
func GeneratePath(p Params) string {
	var parts []string
	if p.Meta {
		parts = append(parts, "meta")
	}
	if len(p.Ops) > 0 {
		var ops []string
		for _, op := range p.Ops {
			ops = append(ops, fmt.Sprintf("%s(%s)", op.Name, op.Args))
		}
		parts = append(parts, strings.Join(ops, ":"))
	}
	img := p.Image
	if strings.Contains(img, "?") || opNameRegex.MatchString(img) {
		img = url.QueryEscape(img)
	}
	parts = append(parts, img)
	return strings.Join(parts, "/")
}

// GenerateUnsafe generate unsafe endpoint by Params struct
func GenerateUnsafe(p Params) string {
	return Generate(p, nil)
}

// Generate endpoint with signature by Params struct with signer
func Generate(p Params, signer Signer) string {
	imgPath := GeneratePath(p)
	if signer != nil {
		return signer.Sign(imgPath) + "/" + imgPath
	}
	return "unsafe/" + imgPath
}

// JoinArgs joins op args, escaping commas and parentheses within each arg
func JoinArgs(args ...string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = escape(arg, func(c byte) bool {
			return c == ',' || c == '(' || c == ')' || c == '%' || c == '/' || c == ':'
		})
	}
	return strings.Join(escaped, ",")
}
