package core

// Options are the feature switches and threshold that shape a tagging decision.
type Options struct {
	Threshold     int
	MotongEnabled bool
	MotongGroup   string
	K4Enabled     bool
}

// Reconcile computes the tag set an entity should carry. Every managed tag is
// stripped, then the score tag and any earned quality tags are added back.
// Unmanaged tags keep their original order. The second return value is false
// when the result equals current as a set, in which case no write is needed.
func Reconcile(current []int, vocab *Vocabulary, c Classification, opts Options) ([]int, bool) {
	seen := make(map[int]bool, len(current)+3)
	next := make([]int, 0, len(current)+3)
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			next = append(next, id)
		}
	}

	for _, id := range current {
		if !vocab.IsManagedID(id) {
			add(id)
		}
	}

	add(vocab.ID(c.Label))
	if c.HasMotong && opts.MotongEnabled {
		add(vocab.ID(LabelMotong))
	}
	if c.Has4K && opts.K4Enabled {
		add(vocab.ID(Label4K))
	}

	if sameSet(current, next) {
		return nil, false
	}
	return next, true
}

func sameSet(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, id := range a {
		as[id] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, id := range b {
		bs[id] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}
