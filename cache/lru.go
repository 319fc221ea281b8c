// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/diffeo/go-travelhistory/travel"
)

// entry is one remembered directory lookup.
type entry struct {
	Code    string
	Meta    travel.Metadata
	Fetched time.Time
}

// lru is a least-recently-used cache with a fixed capacity.  The cache
// can be safely accessed from multiple goroutines.
type lru struct {
	size      int
	lock      sync.Mutex
	evictList *list.List
	index     map[string]*list.Element
}

func newLRU(size int) *lru {
	return &lru{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves an item from the cache, marking it as most recently
// used.
func (lru *lru) Get(code string) (entry, bool) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[code]; present {
		lru.evictList.MoveToBack(element)
		return element.Value.(entry), true
	}
	return entry{}, false
}

// Peek looks for an item in the cache without affecting its recency.
func (lru *lru) Peek(code string) (entry, bool) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[code]; present {
		return element.Value.(entry), true
	}
	return entry{}, false
}

// Put adds an item to the LRU cache, possibly evicting something.
func (lru *lru) Put(item entry) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	// Are we just updating an existing item?
	if element, present := lru.index[item.Code]; present {
		element.Value = item
		lru.evictList.MoveToBack(element)
		return
	}

	element := lru.evictList.PushBack(item)
	lru.index[item.Code] = element

	// If this caused the cache to go over size, start evicting items
	for len(lru.index) > lru.size {
		head := lru.evictList.Front()
		delete(lru.index, head.Value.(entry).Code)
		lru.evictList.Remove(head)
	}
}

// Remove takes an item out of the cache.  It does nothing if that
// code does not exist.
func (lru *lru) Remove(code string) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[code]; present {
		delete(lru.index, code)
		lru.evictList.Remove(element)
	}
}

// Len returns the number of cached items.
func (lru *lru) Len() int {
	lru.lock.Lock()
	defer lru.lock.Unlock()
	return len(lru.index)
}
