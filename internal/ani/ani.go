// Package ani is a thin, non-allocating view over the optional .ani
// side-file buffer. Animation-block zero always lives in the MDL buffer;
// this package only ever resolves blocks with index >= 1.
package ani

import "github.com/srcmdl/srcdecode/internal/binreader"

// Reader wraps the raw ANI buffer.
type Reader struct {
	V binreader.View
}

func New(data []byte) *Reader {
	return &Reader{V: binreader.View{Data: data}}
}

// BlockView returns a View whose offset 0 is the start of animation block
// `blockOffset` (an absolute offset already resolved via the MDL's
// animation-block table).
func (r *Reader) BlockView(blockOffset int) binreader.View {
	return r.V.Sub(blockOffset)
}
