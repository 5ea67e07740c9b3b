package hac

import (
	"time"

	"github.com/akmalfairuz/legacy-version/legacyver/legacypacket"
	"github.com/akmalfairuz/legacy-version/legacyver/proto"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

const (
	rateLimitInterval = 8 * time.Second
	maxNormalPackets  = 80 * 8
	maxSpammedPackets = 1000 * 8
)

// rateLimiter drops the packets of a client sending more than it ever should. Packets clients are known to
// send in bursts only count towards the higher of the two limits.
type rateLimiter struct {
	normal    int
	spammed   int
	lastReset time.Time
	exceeded  bool

	wire     minecraft.Protocol
	now      func() time.Time
	onExceed func()
}

func newRateLimiter(wire minecraft.Protocol, onExceed func()) *rateLimiter {
	return &rateLimiter{wire: wire, now: time.Now, lastReset: time.Now(), onExceed: onExceed}
}

func (r *rateLimiter) HandlePacket(ctx *pipeline.Context) {
	if now := r.now(); now.Sub(r.lastReset) >= rateLimitInterval {
		r.normal, r.spammed, r.lastReset = 0, 0, now
	}

	r.spammed++
	if r.check(r.spammed, maxSpammedPackets) {
		ctx.Drop()
		return
	}
	if r.spammable(ctx.Packet()) {
		return
	}
	r.normal++
	if r.check(r.normal, maxNormalPackets) {
		ctx.Drop()
	}
}

// spammable reports if a packet is one that clients send in bursts due to client bugs. Only arm swings and
// small use item transactions qualify, so that the exemption cannot be used to flood the server.
func (r *rateLimiter) spammable(raw []byte) bool {
	h, _, err := version.ReadHeader(raw)
	if err != nil {
		return false
	}
	switch h.PacketID {
	case packet.IDNetworkStackLatency:
		return true
	case packet.IDAnimate, packet.IDInventoryTransaction:
	default:
		return false
	}
	pk, err := version.UnmarshalProto(r.wire, raw, false)
	if err != nil {
		return false
	}
	switch pk := pk.(type) {
	case *packet.Animate:
		return pk.ActionType == packet.AnimateActionSwingArm
	case *packet.InventoryTransaction:
		if !emptyTransaction(pk.LegacyRequestID, pk.LegacySetItemSlots, pk.Actions) {
			return false
		}
		useItem, ok := pk.TransactionData.(*protocol.UseItemTransactionData)
		return ok && smallUseItem(useItem.LegacySetItemSlots, useItem.Actions, useItem.HeldItem.Stack)
	case *legacypacket.InventoryTransaction:
		if !emptyTransaction(pk.LegacyRequestID, pk.LegacySetItemSlots, pk.Actions) {
			return false
		}
		useItem, ok := pk.TransactionData.(*proto.UseItemTransactionData)
		return ok && smallUseItem(useItem.LegacySetItemSlots, useItem.Actions, useItem.HeldItem.Stack)
	}
	return false
}

func emptyTransaction(requestID int32, slots []protocol.LegacySetItemSlot, actions []protocol.InventoryAction) bool {
	return requestID == 0 && len(slots) == 0 && len(actions) == 0
}

func smallUseItem(slots []protocol.LegacySetItemSlot, actions []protocol.InventoryAction, held protocol.ItemStack) bool {
	return len(slots) < 50 && len(actions) < 50 &&
		len(held.CanBePlacedOn) < 100 && len(held.CanBreak) < 100 && len(held.NBTData) < 100
}

func (r *rateLimiter) check(count, max int) bool {
	if count <= max {
		return false
	}
	if !r.exceeded {
		r.exceeded = true
		r.onExceed()
	}
	return true
}
