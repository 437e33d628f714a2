package pipeline

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGenerate(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		params Params
		signer Signer
	}{
		{
			name: "image only",
			uri:  "unsafe/foo/bar.jpg",
			params: Params{
				Path:   "foo/bar.jpg",
				Image:  "foo/bar.jpg",
				Unsafe: true,
			},
		},
		{
			name: "op chain",
			uri:  "unsafe/fit(200,100,lanczos):flip():format(png)/foo/bar.jpg",
			params: Params{
				Path:   "fit(200,100,lanczos):flip():format(png)/foo/bar.jpg",
				Image:  "foo/bar.jpg",
				Unsafe: true,
				Ops: Ops{
					{Name: "fit", Args: "200,100,lanczos"},
					{Name: "flip"},
					{Name: "format", Args: "png"},
				},
			},
		},
		{
			name: "meta",
			uri:  "unsafe/meta/crop(10,20,1,2)/bar.png",
			params: Params{
				Path:   "meta/crop(10,20,1,2)/bar.png",
				Image:  "bar.png",
				Unsafe: true,
				Meta:   true,
				Ops:    Ops{{Name: "crop", Args: "10,20,1,2"}},
			},
		},
		{
			name: "url image",
			uri:  "unsafe/blur(1,0.5)/https%3A%2F%2Fexample.com%2Fcat.jpg%3Fsize%3Dlarge",
			params: Params{
				Path:   "blur(1,0.5)/https%3A%2F%2Fexample.com%2Fcat.jpg%3Fsize%3Dlarge",
				Image:  "https://example.com/cat.jpg?size=large",
				Unsafe: true,
				Ops:    Ops{{Name: "blur", Args: "1,0.5"}},
			},
		},
		{
			name: "signed",
			uri:  "vaIvBwOv2DSIJ0iAq4gOmD6ilgY=/fit(16,17)/foobar.jpg",
			params: Params{
				Path:  "fit(16,17)/foobar.jpg",
				Image: "foobar.jpg",
				Hash:  "vaIvBwOv2DSIJ0iAq4gOmD6ilgY=",
				Ops:   Ops{{Name: "fit", Args: "16,17"}},
			},
			signer: NewDefaultSigner("abcd"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.params, Parse(tt.uri))
			assert.Equal(t, tt.params, Parse("/"+tt.uri))
			if tt.signer != nil {
				assert.Equal(t, tt.uri, Generate(tt.params, tt.signer))
			} else {
				assert.Equal(t, tt.uri, GenerateUnsafe(tt.params))
			}
		})
	}
}

func TestParseNestedArgs(t *testing.T) {
	p := Parse("/unsafe/extend(100,100,0,0,rgb(10,20,30)):get(a:b)/img.png")
	assert.Equal(t, Ops{
		{Name: "extend", Args: "100,100,0,0,rgb(10,20,30)"},
		{Name: "get", Args: "a:b"},
	}, p.Ops)
	assert.Equal(t, "img.png", p.Image)
	assert.Equal(t, []string{"100", "100", "0", "0", "rgb(10,20,30)"}, SplitArgs(p.Ops[0].Args))
}

func TestSplitJoinArgs(t *testing.T) {
	assert.Nil(t, SplitArgs(""))
	assert.Equal(t, []string{"1", "", "x"}, SplitArgs("1,,x"))
	assert.Equal(t, []string{"a,b", "c"}, SplitArgs("a%2Cb, c"))
	joined := JoinArgs("a,b", "(c)", "d")
	assert.Equal(t, "a%2Cb,%28c%29,d", joined)
	assert.Equal(t, []string{"a,b", "(c)", "d"}, SplitArgs(joined))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "webp", Parse("format(png):format(webp)/a.jpg").Format())
	assert.Equal(t, "", Parse("a.jpg").Format())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t,
		"fit%28200%2C100%29/https%3A/example.com/a+b.png",
		Normalize("/fit(200,100)/https://example.com/a b.png///", nil))
	assert.Equal(t,
		"https%3A/example.com/a b.png",
		Normalize("https://example.com/a b.png", func(c byte) bool {
			return DefaultEscapeByte(c) && c != ' '
		}))
	assert.Equal(t, "", Normalize("/", nil))
}

func TestHMACSigner(t *testing.T) {
	signer := NewHMACSigner(sha256.New, 28, "abcd")
	assert.Equal(t, "zb6uWXQxwJDOe_zOgxkuj96Etrsz", signer.Sign("assfasf"))
}

func TestHasher(t *testing.T) {
	assert.Equal(t, "e6/86/1a810ff186b4f747ef85f7c53946f0e6d8cb", DigestStorageHasher.Hash("foobar.jpg"))
	p := Params{Image: "foobar", Ops: Ops{{Name: "fit", Args: "16,17"}}}
	assert.Equal(t, "b4/ad/d3e99d257253e2a502406f89bfb36fe82446", DigestResultStorageHasher.HashResult(p))
	assert.Equal(t, "foobar.b4add3e99d257253e2a5", SuffixResultStorageHasher.HashResult(p))

	p = Parse("fit(16,17):format(png)/foobar.jpg")
	assert.Equal(t, "foobar.d19ccd9e8e962b9ea54b.png", SuffixResultStorageHasher.HashResult(p))
	p = Parse("meta/fit(16,17)/foobar.jpg")
	assert.Equal(t, "foobar.23230f0eda5e7972c4e3.json", SuffixResultStorageHasher.HashResult(p))
}
