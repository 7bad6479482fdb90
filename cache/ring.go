package cache

import "github.com/lunfardo314/btrees/persist"

// ringAdd/ringDel/ringMoveToHead implement the doubly-linked LRU ring over
// persist.RingNode. home is always the cache's own sentinel node.

func ringAdd(home, elt *persist.RingNode) {
	elt.SetNext(home)
	elt.SetPrev(home.Prev())
	home.Prev().SetNext(elt)
	home.SetPrev(elt)
}

func ringDel(elt *persist.RingNode) {
	elt.Next().SetPrev(elt.Prev())
	elt.Prev().SetNext(elt.Next())
	elt.Clear()
}

func ringMoveToHead(home, elt *persist.RingNode) {
	elt.Prev().SetNext(elt.Next())
	elt.Next().SetPrev(elt.Prev())
	elt.SetNext(home)
	elt.SetPrev(home.Prev())
	home.Prev().SetNext(elt)
	home.SetPrev(elt)
}

// ringCount walks the ring starting at home.Next() and counts nodes other
// than home itself. Used only by consistency checks (CheckInvariants) since
// the cache otherwise tracks nonGhostCount incrementally.
func ringCount(home *persist.RingNode) int {
	n := 0
	for cur := home.Next(); cur != home; cur = cur.Next() {
		n++
	}
	return n
}
