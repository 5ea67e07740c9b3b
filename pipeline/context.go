package pipeline

import "sync"

// Context is passed to every stage a packet flows through. Stages may replace the packet, or drop it so
// that it never reaches its destination.
type Context struct {
	// pk holds the raw packet, header included.
	pk []byte
	// modified is true if a stage replaced the packet.
	modified bool
	// dropped is true if a stage decided the packet should not be delivered.
	dropped bool
}

var contextPool = sync.Pool{
	New: func() any {
		return &Context{}
	},
}

func newContext(pk []byte) *Context {
	ctx := contextPool.Get().(*Context)
	ctx.pk, ctx.modified, ctx.dropped = pk, false, false
	return ctx
}

func releaseContext(ctx *Context) {
	ctx.pk = nil
	contextPool.Put(ctx)
}

// Packet returns the packet as it currently is. The slice must not be retained after the stage returns.
func (ctx *Context) Packet() []byte {
	return ctx.pk
}

// Replace replaces the packet that is passed on to the next stages and, eventually, the destination.
func (ctx *Context) Replace(pk []byte) {
	ctx.pk = pk
	ctx.modified = true
}

func (ctx *Context) Modified() bool {
	return ctx.modified
}

// Drop stops the packet from flowing to any later stage and from being delivered.
func (ctx *Context) Drop() {
	ctx.dropped = true
}

func (ctx *Context) Dropped() bool {
	return ctx.dropped
}
