/*
Package watch retires callback proxies when their owning peer disconnects.

The watcher holds back-references only: it never owns a proxy and never
extends its lifetime. The owning registry (for example a service's set of
registered callbacks) supplies a removal hook at attach time, so cleanup is
uniform across interface types.
*/
package watch

import (
	"sync"

	"github.com/objbus/objbus/proxy"
)

// Conn is the subset of a bus connection the watcher needs: a way to be
// told, asynchronously, that the peer went away.
type Conn interface {
	ConnID() string
	OnClose(func(connID string))
}

type entry struct {
	proxy    proxy.Proxy
	onRemove func()
}

// DisconnectWatcher tracks which proxies belong to which peer connection
// and retires them all when that peer disconnects.
type DisconnectWatcher struct {
	mu    sync.Mutex
	peers map[string][]entry
}

// Attach registers a proxy under a peer connection id. onRemove, if
// non-nil, is invoked exactly once when the proxy is cleaned up; it should
// drop the proxy from whatever registry holds it. A proxy is tracked under
// at most one connection: re-attaching moves it.
func (w *DisconnectWatcher) Attach(connID string, p proxy.Proxy, onRemove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.peers == nil {
		w.peers = map[string][]entry{}
	}
	w.detachLocked(p)
	w.peers[connID] = append(w.peers[connID], entry{proxy: p, onRemove: onRemove})
}

// detachLocked removes a proxy from every peer list. Must hold w.mu.
func (w *DisconnectWatcher) detachLocked(p proxy.Proxy) {
	for connID, entries := range w.peers {
		kept := entries[:0]
		for _, e := range entries {
			if e.proxy != p {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(w.peers, connID)
		} else {
			w.peers[connID] = kept
		}
	}
}

// OnPeerDisconnected retires every proxy attached under the connection id
// and runs their removal hooks. Delivery of disconnect notifications is
// outside our control, so this is deterministic and idempotent: repeated
// calls for the same id leave the same end state.
func (w *DisconnectWatcher) OnPeerDisconnected(connID string) {
	w.mu.Lock()
	entries := w.peers[connID]
	delete(w.peers, connID)
	w.mu.Unlock()

	for _, e := range entries {
		e.proxy.Retire()
		if e.onRemove != nil {
			e.onRemove()
		}
	}
}

// WatchConn arranges for OnPeerDisconnected to fire when the connection
// closes.
func (w *DisconnectWatcher) WatchConn(c Conn) {
	c.OnClose(w.OnPeerDisconnected)
}

// Watching reports whether any proxies are attached under the connection
// id.
func (w *DisconnectWatcher) Watching(connID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.peers[connID]) > 0
}
