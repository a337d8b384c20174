package printjob

import (
	"sort"
	"sync"
)

// Printers tracks which printers connected agents report and which one staff
// selected. State lives only as long as the process.
type Printers struct {
	mu        sync.RWMutex
	available map[string][]string
	selected  string
}

func NewPrinters(defaultPrinter string) *Printers {
	return &Printers{available: make(map[string][]string), selected: defaultPrinter}
}

// SetAvailable replaces the printer list reported for storeID.
func (p *Printers) SetAvailable(storeID string, names []string) {
	cp := append([]string(nil), names...)
	p.mu.Lock()
	p.available[storeID] = cp
	p.mu.Unlock()
}

// Available returns every reported printer name, deduplicated and sorted.
func (p *Printers) Available() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, names := range p.available {
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (p *Printers) Selected() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

func (p *Printers) Select(name string) {
	p.mu.Lock()
	p.selected = name
	p.mu.Unlock()
}
