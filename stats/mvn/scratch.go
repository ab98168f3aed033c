package mvn

import "sync"

// scratchBuf holds pooled per-row working memory.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) *scratchBuf {
	buf := scratchPool.Get().(*scratchBuf)
	if cap(buf.data) < n {
		buf.data = make([]float64, n)
	} else {
		buf.data = buf.data[:n]
	}
	return buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}
