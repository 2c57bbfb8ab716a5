package extract

import "strings"

const canonicalHeader = "date,description,amount"

// Sizing policy for remote extraction. The extractor has a bounded
// processing budget per call, so large statements are partitioned; the
// first headerContextLines lines are re-sent with every chunk so fragments
// keep their column-meaning context.
const (
	// singleRequestMaxLines is the largest input sent as one request.
	singleRequestMaxLines = 300

	// headerContextLines is the shared prefix re-sent with every chunk.
	headerContextLines = 15

	// chunkDataLines is the number of data lines per chunk.
	chunkDataLines = 200

	// batchSize bounds concurrent extraction calls. Batches run strictly
	// sequentially, so peak outbound concurrency never exceeds this.
	batchSize = 3
)

// nonEmptyLines splits content into lines, dropping blank ones.
func nonEmptyLines(content string) []string {
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// buildChunks partitions lines into extraction chunks, each prefixed with
// the shared header context.
func buildChunks(lines []string) []string {
	headerContext := strings.Join(lines[:headerContextLines], "\n")
	dataLines := lines[headerContextLines:]

	var chunks []string
	for i := 0; i < len(dataLines); i += chunkDataLines {
		end := i + chunkDataLines
		if end > len(dataLines) {
			end = len(dataLines)
		}
		chunks = append(chunks, headerContext+"\n"+strings.Join(dataLines[i:end], "\n"))
	}
	return chunks
}
