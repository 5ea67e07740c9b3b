package pipeline

// Names of the stages a host transport is expected to install, and of the stages interception splices in.
const (
	StageRateLimit     = "rate_limit"
	StagePacketHandler = "packet_handler"

	StageInterceptInbound  = "hac_inbound"
	StageInterceptOutbound = "hac_outbound"
)

// Carrier is implemented by host transports whose connections carry a Pipeline.
type Carrier interface {
	// Pipeline returns the stage pipeline of the connection.
	Pipeline() *Pipeline
	// Inject writes a raw packet directly to the destination of the direction passed: the server for
	// Inbound and the client for Outbound. Injected packets do not flow through the pipeline.
	Inject(dir Direction, pk []byte) error
}

// Point is the location in a connection's pipeline where interception stages are spliced in.
type Point struct {
	Carrier Carrier
	// InboundAnchor and OutboundAnchor are the names of the stages that interception stages are added
	// directly before.
	InboundAnchor, OutboundAnchor string
}

// Pipeline ...
func (p Point) Pipeline() *Pipeline {
	return p.Carrier.Pipeline()
}
