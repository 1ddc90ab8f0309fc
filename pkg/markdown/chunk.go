package markdown

// DefaultChunkSize keeps each piece safely under the Telegram message
// length limit, leaving headroom for closing markup.
const DefaultChunkSize = 3500

// Chunk splits text into rune-safe pieces of at most size runes, in order.
// Concatenating the pieces reconstructs the input exactly.
func Chunk(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
