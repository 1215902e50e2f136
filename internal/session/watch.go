// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
)

// Watch delivers snapshots to fn on a dedicated goroutine until ctx is done.
// Bursts are coalesced: fn always receives the newest snapshot, never an older
// one after a newer one, but intermediate versions may be skipped. Unlike
// Subscribe, fn may block or call back into the store.
//
// The returned channel is closed once the goroutine has exited.
func (s *Store) Watch(ctx context.Context, fn func(Snapshot)) <-chan struct{} {
	var (
		mu      sync.Mutex
		latest  Snapshot
		pending bool
	)
	notify := make(chan struct{}, 1)

	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		if !pending || snap.Version > latest.Version {
			latest = snap
			pending = true
		}
		mu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()

		var delivered uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-notify:
			}

			mu.Lock()
			snap, ok := latest, pending
			pending = false
			mu.Unlock()

			if ok && snap.Version > delivered {
				delivered = snap.Version
				fn(snap)
			}
		}
	}()
	return done
}
