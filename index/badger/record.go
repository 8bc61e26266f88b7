package badger

import (
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	"github.com/poiesic/docqa/storage"
)

// marshalEntry encodes a chunk and its unit-length vector.
func marshalEntry(c core.Chunk, vector []float32) []byte {
	w := &storage.Writer{}
	w.String(c.ID)
	w.String(c.Text)
	w.String(c.ArticleTitle)
	w.String(c.SourceFilename)
	w.Ints(c.PageNumbers)
	w.Int(c.SequenceID)
	w.String(c.CollectionID)
	w.Uint64(uint64(c.DocumentID))
	w.Float32s(vector)
	return w.Bytes()
}

// unmarshalEntry decodes a value written by marshalEntry.
func unmarshalEntry(data []byte) (index.Entry, error) {
	r := storage.NewReader(data)
	var e index.Entry
	e.Chunk.ID = r.String()
	e.Chunk.Text = r.String()
	e.Chunk.ArticleTitle = r.String()
	e.Chunk.SourceFilename = r.String()
	e.Chunk.PageNumbers = r.Ints()
	e.Chunk.SequenceID = r.Int()
	e.Chunk.CollectionID = r.String()
	e.Chunk.DocumentID = core.ID(r.Uint64())
	e.Vector = r.Float32s()
	if err := r.Err(); err != nil {
		return index.Entry{}, err
	}
	return e, nil
}
