package cache

// lruList keeps keys in recency order: front is most recently used
type lruList struct {
	head  *lruNode
	tail  *lruNode
	nodes map[string]*lruNode
}

type lruNode struct {
	key        string
	prev, next *lruNode
}

func newLRUList() *lruList {
	head, tail := &lruNode{}, &lruNode{}
	head.next = tail
	tail.prev = head
	return &lruList{head: head, tail: tail, nodes: make(map[string]*lruNode)}
}

// touch inserts key at the front, or moves it there if present
func (l *lruList) touch(key string) {
	node, ok := l.nodes[key]
	if ok {
		l.unlink(node)
	} else {
		node = &lruNode{key: key}
		l.nodes[key] = node
	}
	l.pushFront(node)
}

func (l *lruList) remove(key string) {
	if node, ok := l.nodes[key]; ok {
		l.unlink(node)
		delete(l.nodes, key)
	}
}

// popOldest removes and returns the least recently used key
func (l *lruList) popOldest() (string, bool) {
	if len(l.nodes) == 0 {
		return "", false
	}
	oldest := l.tail.prev
	l.unlink(oldest)
	delete(l.nodes, oldest.key)
	return oldest.key, true
}

func (l *lruList) len() int {
	return len(l.nodes)
}

func (l *lruList) pushFront(node *lruNode) {
	node.next = l.head.next
	node.prev = l.head
	l.head.next.prev = node
	l.head.next = node
}

func (l *lruList) unlink(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
