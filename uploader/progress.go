package uploader

import "io"

// progressReader reports bytes read off the wrapped reader. Reported totals
// never decrease, and `sent == total` is only reported once the body has
// been read in full.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(sent, total int64)
}

func newProgressReader(r io.Reader, total int64, fn func(sent, total int64)) *progressReader {
	return &progressReader{r: r, total: total, fn: fn}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		if pr.sent > pr.total {
			// a lying FileSpec.Size must not push progress past 100%
			pr.sent = pr.total
		}
		if pr.fn != nil {
			pr.fn(pr.sent, pr.total)
		}
	}
	return n, err
}

// Percent converts a progress callback pair into a whole percentage.
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(sent * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
