package service

import (
	"strconv"

	"github.com/moby/locker"
)

// keyedMutex serialises work per entity id.
type keyedMutex struct {
	l *locker.Locker
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{l: locker.New()}
}

// Lock blocks until id is free and returns the matching unlock func.
func (k *keyedMutex) Lock(id int64) (unlock func()) {
	name := strconv.FormatInt(id, 10)
	k.l.Lock(name)
	return func() {
		_ = k.l.Unlock(name)
	}
}
