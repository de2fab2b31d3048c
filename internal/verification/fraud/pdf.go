package fraud

import "bytes"

var (
	pdfHeader = []byte("%PDF-")
	pdfEOF    = []byte("%%EOF")
)

// pdfIncrementalUpdates counts revisions appended after the original body.
// Each incremental save appends a new trailer terminated by %%EOF.
func pdfIncrementalUpdates(payload []byte) int {
	if !bytes.HasPrefix(payload, pdfHeader) {
		return 0
	}
	n := bytes.Count(payload, pdfEOF)
	if n <= 1 {
		return 0
	}
	return n - 1
}
