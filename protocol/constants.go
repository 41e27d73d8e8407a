package protocol

// Frame magics. Every request frame starts with RequestMagic, every
// response frame with ResponseMagic; anything else means the stream is
// desynchronized and the connection is beyond saving.
const (
	RequestMagic  byte = 0xA0
	ResponseMagic byte = 0xA1
)

// Operation codes. Requests use the even-1 value, the matching response
// uses request+1. OpErrorResponse is shared by all failed exchanges.
const (
	OpPutRequest          byte = 0x01
	OpPutResponse         byte = 0x02
	OpGetRequest          byte = 0x03
	OpGetResponse         byte = 0x04
	OpPutIfAbsentRequest  byte = 0x05
	OpPutIfAbsentResponse byte = 0x06
	OpRemoveRequest       byte = 0x0B
	OpRemoveResponse      byte = 0x0C
	OpContainsKeyRequest  byte = 0x0F
	OpContainsKeyResponse byte = 0x10
	OpPingRequest         byte = 0x17
	OpPingResponse        byte = 0x18
	OpErrorResponse       byte = 0x50
)

// ResponseOpCode returns the response opcode paired with a request opcode
func ResponseOpCode(reqOp byte) byte {
	return reqOp + 1
}

// Client intelligence levels, declared by the client in every request
// header. They tell the server how much topology detail the client can
// consume.
const (
	IntelligenceBasic         byte = 0x01
	IntelligenceTopologyAware byte = 0x02
	IntelligenceHashAware     byte = 0x03
)

// Request flags
const (
	// FlagForceReturnValue asks write operations to return the previous
	// value in the response body.
	FlagForceReturnValue uint32 = 0x01
)

// HashFunctionXXH3 identifies the hash function used for key ownership
// hints in topology payloads.
const HashFunctionXXH3 byte = 0x03
