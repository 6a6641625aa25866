// Package material resolves a texture-table name plus the CD-texture
// search-path list to a single material path against an asset resolver,
// grounded on the teacher's texture-index "normalize, build candidates, ask
// a resolver, return first hit" shape.
package material

import (
	"path"
	"strings"
)

// Resolver answers whether a candidate path exists in the mounted asset
// tree. It is the same shape as the decoder's public AssetResolver, kept
// local to this package to avoid an import of the root package.
type Resolver interface {
	Exists(path string) bool
}

// Resolve returns the first candidate of
// "materials/<searchPath>/<textureName>.vmt" (searchPath in CD-texture-path
// order, including the empty search path) that the resolver reports exists,
// along with the path it matched. ok is false if no candidate exists or the
// resolver is nil.
func Resolve(resolver Resolver, textureName string, searchPaths []string) (resolved string, ok bool) {
	if resolver == nil || textureName == "" {
		return "", false
	}
	name := normalize(textureName)
	if !strings.HasSuffix(name, ".vmt") {
		name += ".vmt"
	}

	candidates := make([]string, 0, len(searchPaths)+1)
	candidates = append(candidates, searchPaths...)
	candidates = append(candidates, "")
	for _, sp := range candidates {
		p := path.Join("materials", normalize(sp), name)
		if resolver.Exists(p) {
			return p, true
		}
	}
	return "", false
}

// normalize lowercases a path and rewrites backslashes to forward slashes,
// the two transforms every search-path and texture-name string needs before
// being joined into a candidate.
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(p)
}
