package chunker

import (
	"io"

	boxochunker "github.com/ipfs/boxo/chunker"
)

// DefaultChunkSize is the size of every chunk but the last one.
const DefaultChunkSize = 64 * 1024

// Chunker splits a stream of data into chunks.
type Chunker interface {
	// Next returns the next chunk of data.
	// It returns io.EOF when there are no more chunks.
	Next() ([]byte, error)
}

// NewChunker creates a Chunker cutting r into DefaultChunkSize pieces using
// the size splitter from boxo/chunker.
func NewChunker(r io.Reader) Chunker {
	return NewSizeChunker(r, DefaultChunkSize)
}

func NewSizeChunker(r io.Reader, size int64) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &boxoChunkerWrapper{
		splitter: boxochunker.NewSizeSplitter(r, size),
	}
}

type boxoChunkerWrapper struct {
	splitter boxochunker.Splitter
}

func (c *boxoChunkerWrapper) Next() ([]byte, error) {
	return c.splitter.NextBytes()
}
