package p2p

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// discoveryNotifee handles mDNS peer discovery notifications.
type discoveryNotifee struct {
	node *Node
}

// HandlePeerFound is called when a peer is discovered via mDNS. Local
// network discovery routinely rediscovers a peer we already banned (it
// doesn't stop broadcasting just because we rejected it once), so this
// skips the dial entirely instead of relying on the connection gater to
// reject it after a timeout.
func (d *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == d.node.host.ID() {
		return // Ignore self.
	}
	if d.node.BanManager != nil && d.node.BanManager.IsBanned(pi.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(d.node.ctx, 5*time.Second)
	defer cancel()

	if err := d.node.host.Connect(ctx, pi); err == nil {
		d.node.addPeer(pi.ID)
	}
}
