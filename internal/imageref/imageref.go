// Package imageref maps the image references stored on list items to
// URLs a browser can render.
package imageref

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

const (
	// DefaultAssetsRoot is where bundled images are served from.
	DefaultAssetsRoot = "/assets/images"

	// DefaultBrandColor fills the placeholder background.
	DefaultBrandColor = "#03787c"

	// DefaultLabel is the placeholder caption.
	DefaultLabel = "Contoso"
)

// redundantPrefixes are stripped from bundled asset paths before encoding.
var redundantPrefixes = []string{
	"public/assets/images/",
	"assets/images/",
}

// Resolver resolves image references. The zero value uses the defaults.
type Resolver struct {
	AssetsRoot string
	BrandColor string
	Label      string
}

// Default is the resolver used by Resolve.
var Default = Resolver{}

// Resolve resolves primary with fallback using the default resolver.
func Resolve(primary, fallback string) string {
	return Default.Resolve(primary, fallback)
}

// Resolve returns a usable image reference, never an empty string.
//
// Absolute http(s) URLs, data URIs and server-relative paths are returned
// verbatim. Anything else names a bundled asset and is percent-encoded per
// path segment under AssetsRoot. When neither primary nor fallback is
// set, an inline SVG placeholder is returned.
func (r Resolver) Resolve(primary, fallback string) string {
	if ref := strings.TrimSpace(primary); ref != "" {
		return r.resolveRef(ref)
	}
	if ref := strings.TrimSpace(fallback); ref != "" {
		return r.resolveRef(ref)
	}
	return r.Placeholder()
}

func (r Resolver) resolveRef(ref string) string {
	if IsAbsolute(ref) || strings.HasPrefix(ref, "/") {
		return ref
	}
	return r.assetsRoot() + "/" + EncodePath(stripRedundantPrefix(ref))
}

// Placeholder returns the brand-colored SVG placeholder as a data URI.
func (r Resolver) Placeholder() string {
	color := r.BrandColor
	if color == "" {
		color = DefaultBrandColor
	}
	label := r.Label
	if label == "" {
		label = DefaultLabel
	}
	svg := fmt.Sprintf(`<svg width="200" height="150" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="%s"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" fill="white" font-size="14" font-family="Segoe UI">%s</text>`+
		`</svg>`,
		html.EscapeString(color), html.EscapeString(label))
	return "data:image/svg+xml," + encodeComponent(svg)
}

func (r Resolver) assetsRoot() string {
	root := strings.TrimRight(r.AssetsRoot, "/")
	if root == "" {
		return DefaultAssetsRoot
	}
	return root
}

// IsAbsolute reports whether ref is an http(s) URL or a data URI.
func IsAbsolute(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}

// componentUnescaper restores the characters that URI component encoding
// leaves as is but url.QueryEscape does not.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodePath percent-encodes each segment of a slash-separated path as a
// URI component, so spaces, '#', '&' and the like in file names survive.
func EncodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = encodeComponent(s)
	}
	return strings.Join(segments, "/")
}

func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

func stripRedundantPrefix(ref string) string {
	for _, prefix := range redundantPrefixes {
		if len(ref) >= len(prefix) && strings.EqualFold(ref[:len(prefix)], prefix) {
			return ref[len(prefix):]
		}
	}
	return ref
}
