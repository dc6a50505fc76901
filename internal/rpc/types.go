package rpc

// Network types served by the transport
const (
	NetworkStacks  = "stacks"
	NetworkBitcoin = "bitcoin"
)

// Content types used by request bodies
const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeText        = "text/plain"
)
