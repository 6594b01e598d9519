package document

import (
	"docchat/internal/text"
)

// Processor turns a raw document into cleaned, chunked records ready for
// embedding.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (p *Processor) ChunkSize() int    { return p.chunkSize }
func (p *Processor) ChunkOverlap() int { return p.chunkOverlap }

// Process cleans the document text, splits it and emits one Chunk per
// segment with sequential indexes. An empty document yields no chunks.
func (p *Processor) Process(doc *Document) []Chunk {
	cleaned := text.CleanText(doc.Content)
	segments := text.Split(cleaned, p.chunkSize, p.chunkOverlap)

	chunks := make([]Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, Chunk{
			ID:      ChunkID(doc.ID, i),
			Content: seg,
			Metadata: ChunkMetadata{
				DocumentID:  doc.ID,
				Title:       doc.Title,
				SourceURL:   doc.SourceURL,
				ChunkIndex:  i,
				TotalChunks: len(segments),
			},
		})
	}
	return chunks
}
