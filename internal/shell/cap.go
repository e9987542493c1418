package shell

// CapLimit bounds text kept for report payloads and benchmark captures. It is
// far below the runner's output ceiling: the ceiling protects the process, the
// cap protects whatever stores the result.
const CapLimit = 4096

// capMarker is appended whenever Cap truncates.
const capMarker = "…(truncated)"

// Cap returns text unchanged when it fits CapLimit, otherwise the CapLimit-byte
// prefix with a truncation marker appended.
func Cap(text string) string {
	if len(text) <= CapLimit {
		return text
	}
	return text[:CapLimit] + capMarker
}

// CapTo is Cap with a caller-chosen limit.
func CapTo(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + capMarker
}
