package imaging

// Deduper tracks image content hashes across the turns of a conversation so
// that the same image pasted into several messages is only uploaded once.
type Deduper struct {
	seen map[string]bool
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Seen reports whether hash was recorded before, and records it.
func (d *Deduper) Seen(hash string) bool {
	if hash == "" {
		return false
	}
	if d.seen[hash] {
		return true
	}
	d.seen[hash] = true
	return false
}
