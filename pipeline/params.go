// Package pipeline parses and generates URL paths carrying a chain of
// imagick operations e.g. /fit(200,200,lanczos):flip()/photos/cat.jpg
package pipeline

// Op image operation in the chain, Args as written in the path
type Op struct {
	Name string `json:"name"`
	Args string `json:"args,omitempty"`
}

// Ops a slice of Op
type Ops []Op

// Params endpoint parameters
type Params struct {
	Path   string `json:"path,omitempty"`
	Image  string `json:"image,omitempty"`
	Unsafe bool   `json:"unsafe,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Meta   bool   `json:"meta,omitempty"`
	Ops    Ops    `json:"ops,omitempty"`
}

// Format returns the format set by the chain, empty if none
func (p Params) Format() string {
	var format string
	for _, op := range p.Ops {
		if op.Name == "format" {
			format = op.Args
		}
	}
	return format
}
