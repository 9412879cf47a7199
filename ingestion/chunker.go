package ingestion

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// ChunkText splits content into paragraph-based chunks of roughly target
// characters. When a chunk fills up, the last paragraph carries over into the
// next chunk as overlap so context is not lost at the boundary. A single
// paragraph longer than target is hard-split at the character level into
// target-sized windows.
func ChunkText(content string, target, overlap int) []string {
	clean := strings.ReplaceAll(content, "\r\n", "\n")
	paragraphs := strings.Split(clean, "\n\n")
	chunks := make([]string, 0)
	current := make([]string, 0)
	currentLen := 0

	for _, paragraph := range paragraphs {
		p := strings.TrimSpace(paragraph)
		if p == "" {
			continue
		}

		if len(p) > target {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, "\n\n"))
			}
			pieces := splitOversized(p, target, overlap)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			current = []string{last}
			currentLen = len(last)
			continue
		}

		if currentLen+len(p) > target && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			if overlap > 0 {
				last := current[len(current)-1]
				current = []string{last}
				currentLen = len(last)
			} else {
				current = current[:0]
				currentLen = 0
			}
		}

		current = append(current, p)
		currentLen += len(p)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}

// splitOversized slides a target-sized window over a paragraph that cannot
// fit in one chunk. Consecutive windows share overlap characters.
func splitOversized(p string, target, overlap int) []string {
	step := target - overlap
	if step <= 0 {
		step = target
	}

	pieces := make([]string, 0, len(p)/step+1)
	for start := 0; start < len(p); start += step {
		end := start + target
		if end > len(p) {
			end = len(p)
		}
		pieces = append(pieces, p[start:end])
		if end == len(p) {
			break
		}
	}
	return pieces
}
