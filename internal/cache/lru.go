package cache

import "container/list"

// lruList is a thin wrapper around container/list used by ResourceCache
// and SchemaCache, both of which need to move arbitrary elements to the
// front on access and evict from the back on overflow. The element
// payload is the entry's key; callers look the entry up in their own map.
type lruList struct {
	l *list.List
}

type lruNode struct {
	el *list.Element
}

func newLRUList() *lruList { return &lruList{l: list.New()} }

func (ll *lruList) pushFront(key string) *lruNode {
	el := ll.l.PushFront(key)
	return &lruNode{el: el}
}

func (ll *lruList) moveToFront(n *lruNode) {
	if n != nil {
		ll.l.MoveToFront(n.el)
	}
}

func (ll *lruList) remove(n *lruNode) {
	if n != nil {
		ll.l.Remove(n.el)
	}
}

// back returns the key at the LRU tail, or "" if empty.
func (ll *lruList) back() string {
	el := ll.l.Back()
	if el == nil {
		return ""
	}
	return el.Value.(string)
}
