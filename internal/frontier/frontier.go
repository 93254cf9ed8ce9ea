// Package frontier orders the links a job may still visit.
package frontier

import (
	"container/heap"
	"net/url"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// Frontier is a per-job priority queue of crawlable links with revisit
// protection. It is owned by a single job and is not safe for concurrent use.
type Frontier struct {
	root  string
	seen  *bloom.BloomFilter
	exact map[string]struct{}
	queue linkHeap
	seq   int
}

// New creates a Frontier scoped to the root URL's site. The root itself is
// marked as seen.
func New(root *url.URL, expected uint) *Frontier {
	if expected < 64 {
		expected = 64
	}
	f := &Frontier{
		root:  root.String(),
		seen:  bloom.NewWithEstimates(expected, 0.001),
		exact: make(map[string]struct{}),
	}
	heap.Init(&f.queue)
	f.MarkSeen(root.String())
	return f
}

// Push admits a crawlable, same-site link that has not been seen. It reports
// whether the link was queued.
func (f *Frontier) Push(link crawler.LinkCandidate) bool {
	if !link.Category.Crawlable() {
		return false
	}
	if !crawler.SameSite(link.URL, f.root) || f.Seen(link.URL) {
		return false
	}
	f.MarkSeen(link.URL)
	heap.Push(&f.queue, entry{link: link, seq: f.seq})
	f.seq++
	return true
}

// Pop returns the highest scoring link; ties go to the earliest discovered.
func (f *Frontier) Pop() (crawler.LinkCandidate, bool) {
	if f.queue.Len() == 0 {
		return crawler.LinkCandidate{}, false
	}
	e, _ := heap.Pop(&f.queue).(entry)
	return e.link, true
}

// Len returns the number of queued links.
func (f *Frontier) Len() int {
	return f.queue.Len()
}

// MarkSeen records a URL (such as a redirect target) as visited.
func (f *Frontier) MarkSeen(rawURL string) {
	f.seen.AddString(rawURL)
	f.exact[rawURL] = struct{}{}
}

// Seen reports whether the URL was queued or visited. The bloom filter
// answers most misses without touching the map.
func (f *Frontier) Seen(rawURL string) bool {
	if !f.seen.TestString(rawURL) {
		return false
	}
	_, ok := f.exact[rawURL]
	return ok
}

type entry struct {
	link crawler.LinkCandidate
	seq  int
}

type linkHeap []entry

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	if h[i].link.PriorityScore != h[j].link.PriorityScore {
		return h[i].link.PriorityScore > h[j].link.PriorityScore
	}
	return h[i].seq < h[j].seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	e, _ := x.(entry)
	*h = append(*h, e)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
