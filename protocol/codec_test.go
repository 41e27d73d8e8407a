package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/hotrodkv/hotrod/topology"
	"github.com/hotrodkv/hotrod/transport"
)

// testView builds a two-member cluster view with segment ownership
func testView(id uint32) *topology.View {
	return &topology.View{
		ID: id,
		Members: []topology.Member{
			{Host: "10.0.0.1", Port: 11222, HashID: 42},
			{Host: "10.0.0.2", Port: 11222, HashID: -7},
		},
		NumKeyOwners:    2,
		HashSpaceSize:   1 << 31,
		NumVirtualNodes: 1,
		Segments:        [][]int{{0, 1}, {1, 0}, {0}, {1}},
	}
}

// encodeResponse runs a full header+body encode through the given codec
func encodeResponse(t *testing.T, c Codec, resp *Response, topo *topology.View) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := transport.NewWriter(&buf)
	if err := c.WriteResponseHeader(w, resp, topo); err != nil {
		t.Fatalf("WriteResponseHeader failed: %v", err)
	}
	if err := c.WriteResponseBody(w, resp); err != nil {
		t.Fatalf("WriteResponseBody failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	return buf.Bytes()
}

// TestSelectCodecTotality tests that every possible version byte resolves
// to a codec, and that supported versions resolve to their own
func TestSelectCodecTotality(t *testing.T) {
	for v := 0; v < 256; v++ {
		c := SelectCodec(Version(v))
		if c == nil {
			t.Fatalf("SelectCodec(%d) returned nil", v)
		}
		if Version(v).Supported() {
			if c.Version() != Version(v) {
				t.Errorf("SelectCodec(%d): codec speaks version %d", v, c.Version())
			}
		} else if c.Version() != VersionUnknown {
			t.Errorf("SelectCodec(%d): expected the minimal error codec, got version %d", v, c.Version())
		}
	}
}

// TestSelectCodecDeterminism tests that repeated selection yields the same
// codec instance
func TestSelectCodecDeterminism(t *testing.T) {
	for _, v := range Versions {
		if SelectCodec(v) != SelectCodec(v) {
			t.Errorf("SelectCodec(%s) is not deterministic", v)
		}
	}
}

// TestRequestHeaderRoundTrip tests that a request header written by each
// codec decodes back field by field
func TestRequestHeaderRoundTrip(t *testing.T) {
	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			params := &HeaderParams{
				MessageID:    900715,
				CacheName:    []byte("sessions"),
				Flags:        FlagForceReturnValue,
				Intelligence: IntelligenceHashAware,
				TopologyID:   17,
				OpCode:       OpPutRequest,
			}

			var buf bytes.Buffer
			w := transport.NewWriter(&buf)
			if err := SelectCodec(v).WriteRequestHeader(w, params); err != nil {
				t.Fatalf("WriteRequestHeader failed: %v", err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("flush failed: %v", err)
			}

			r := transport.NewReader(&buf)
			magic, _ := r.ReadByte()
			if magic != RequestMagic {
				t.Fatalf("expected request magic 0x%02x, got 0x%02x", RequestMagic, magic)
			}
			messageID, _ := r.ReadVLong()
			if messageID != params.MessageID {
				t.Errorf("message ID: wrote %d, read %d", params.MessageID, messageID)
			}
			version, _ := r.ReadByte()
			if Version(version) != v {
				t.Errorf("version: expected %d, read %d", v, version)
			}
			opCode, _ := r.ReadByte()
			if opCode != params.OpCode {
				t.Errorf("opcode: expected 0x%02x, read 0x%02x", params.OpCode, opCode)
			}
			cacheName, _ := r.ReadBytes()
			if !bytes.Equal(cacheName, params.CacheName) {
				t.Errorf("cache name: expected %q, read %q", params.CacheName, cacheName)
			}
			flags, _ := r.ReadVInt()
			if flags != params.Flags {
				t.Errorf("flags: expected %d, read %d", params.Flags, flags)
			}
			intelligence, _ := r.ReadByte()
			if intelligence != params.Intelligence {
				t.Errorf("intelligence: expected %d, read %d", params.Intelligence, intelligence)
			}
			topologyID, _ := r.ReadVInt()
			if topologyID != params.TopologyID {
				t.Errorf("topology ID: expected %d, read %d", params.TopologyID, topologyID)
			}
			if _, err := r.ReadByte(); err == nil {
				t.Error("trailing bytes after the header")
			}
		})
	}
}

// TestResponseHeaderRoundTrip tests that response headers with embedded
// topology payloads decode back on every version
func TestResponseHeaderRoundTrip(t *testing.T) {
	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			codec := SelectCodec(v)
			view := testView(9)
			resp := &Response{
				Version:            v,
				MessageID:          311,
				OpCode:             OpGetResponse,
				Status:             StatusSuccess,
				ClientIntelligence: IntelligenceHashAware,
				TopologyID:         3, // older than the view, so topology is due
			}

			frame := encodeResponse(t, codec, resp, view)
			params := &HeaderParams{MessageID: 311, Intelligence: IntelligenceHashAware, TopologyID: 3}
			hdr, err := codec.ReadResponseHeader(transport.NewReader(bytes.NewReader(frame)), params)
			if err != nil {
				t.Fatalf("ReadResponseHeader failed: %v", err)
			}

			if hdr.MessageID != resp.MessageID {
				t.Errorf("message ID: expected %d, got %d", resp.MessageID, hdr.MessageID)
			}
			if hdr.OpCode != resp.OpCode {
				t.Errorf("opcode: expected 0x%02x, got 0x%02x", resp.OpCode, hdr.OpCode)
			}
			if hdr.Status != StatusSuccess {
				t.Errorf("status: expected success, got %s", hdr.Status)
			}
			if hdr.Topology == nil {
				t.Fatal("expected a topology payload")
			}
			if hdr.Topology.ID != view.ID {
				t.Errorf("view ID: expected %d, got %d", view.ID, hdr.Topology.ID)
			}
			if len(hdr.Topology.Members) != len(view.Members) {
				t.Fatalf("members: expected %d, got %d", len(view.Members), len(hdr.Topology.Members))
			}
			for i, m := range hdr.Topology.Members {
				if m.Host != view.Members[i].Host || m.Port != view.Members[i].Port {
					t.Errorf("member %d: expected %s, got %s", i, view.Members[i].Addr(), m.Addr())
				}
			}

			switch v {
			case Version10, Version11:
				// the legacy wheel format carries per-member hash IDs
				for i, m := range hdr.Topology.Members {
					if m.HashID != view.Members[i].HashID {
						t.Errorf("member %d hash ID: expected %d, got %d", i, view.Members[i].HashID, m.HashID)
					}
				}
				if v == Version11 && hdr.Topology.NumVirtualNodes != view.NumVirtualNodes {
					t.Errorf("virtual nodes: expected %d, got %d", view.NumVirtualNodes, hdr.Topology.NumVirtualNodes)
				}
			default:
				// the modern format ships explicit segment ownership
				if !reflect.DeepEqual(hdr.Topology.Segments, view.Segments) {
					t.Errorf("segments: expected %v, got %v", view.Segments, hdr.Topology.Segments)
				}
			}
		})
	}
}

// TestTopologyGating tests the conditions under which a response embeds a
// topology payload
func TestTopologyGating(t *testing.T) {
	view := testView(9)

	tests := []struct {
		name         string
		intelligence byte
		topologyID   uint32
		topo         *topology.View
		expectUpdate bool
	}{
		{"stale client view", IntelligenceHashAware, 3, view, true},
		{"current client view", IntelligenceHashAware, 9, view, false},
		{"basic client", IntelligenceBasic, 3, view, false},
		{"no known topology", IntelligenceHashAware, 3, nil, false},
		{"empty member list", IntelligenceHashAware, 3, &topology.View{ID: 9}, false},
	}

	for _, v := range Versions {
		codec := SelectCodec(v)
		for _, tt := range tests {
			t.Run(v.String()+"/"+tt.name, func(t *testing.T) {
				resp := &Response{
					Version:            v,
					MessageID:          1,
					OpCode:             OpPingResponse,
					Status:             StatusSuccess,
					ClientIntelligence: tt.intelligence,
					TopologyID:         tt.topologyID,
				}
				frame := encodeResponse(t, codec, resp, tt.topo)
				params := &HeaderParams{MessageID: 1, Intelligence: tt.intelligence, TopologyID: tt.topologyID}
				hdr, err := codec.ReadResponseHeader(transport.NewReader(bytes.NewReader(frame)), params)
				if err != nil {
					t.Fatalf("ReadResponseHeader failed: %v", err)
				}
				if got := hdr.Topology != nil; got != tt.expectUpdate {
					t.Errorf("topology payload present=%t, expected %t", got, tt.expectUpdate)
				}
			})
		}
	}
}

// TestTopologyAwareWithoutSegments tests that a merely topology-aware
// client receives the member list but no ownership hints on the modern
// versions
func TestTopologyAwareWithoutSegments(t *testing.T) {
	view := testView(5)
	for _, v := range []Version{Version12, Version13, Version20} {
		codec := SelectCodec(v)
		resp := &Response{
			Version:            v,
			MessageID:          2,
			OpCode:             OpPingResponse,
			Status:             StatusSuccess,
			ClientIntelligence: IntelligenceTopologyAware,
			TopologyID:         1,
		}
		frame := encodeResponse(t, codec, resp, view)
		params := &HeaderParams{MessageID: 2, Intelligence: IntelligenceTopologyAware, TopologyID: 1}
		hdr, err := codec.ReadResponseHeader(transport.NewReader(bytes.NewReader(frame)), params)
		if err != nil {
			t.Fatalf("version %s: ReadResponseHeader failed: %v", v, err)
		}
		if hdr.Topology == nil {
			t.Fatalf("version %s: expected a topology payload", v)
		}
		if len(hdr.Topology.Members) != 2 {
			t.Errorf("version %s: expected 2 members, got %d", v, len(hdr.Topology.Members))
		}
		if hdr.Topology.Segments != nil {
			t.Errorf("version %s: topology-aware client must not receive segments", v)
		}
	}
}

// TestStatusMapping tests the per-version status byte encoding, including
// the documented degradations
func TestStatusMapping(t *testing.T) {
	for _, v := range Versions {
		codec := SelectCodec(v)
		for _, s := range statuses {
			resp := &Response{
				Version:      v,
				MessageID:    7,
				OpCode:       OpErrorResponse,
				Status:       s,
				ErrorMessage: "boom",
			}
			if !s.IsError() {
				resp.OpCode = OpPingResponse
				resp.ErrorMessage = ""
			}
			frame := encodeResponse(t, codec, resp, nil)
			params := &HeaderParams{MessageID: 7, Intelligence: IntelligenceBasic}
			hdr, err := codec.ReadResponseHeader(transport.NewReader(bytes.NewReader(frame)), params)
			if err != nil {
				t.Fatalf("version %s status %s: decode failed: %v", v, s, err)
			}

			expected := s
			if s == StatusCacheNotFound && v != Version20 {
				// pre-2.0 versions have no structured cache-not-found code
				expected = StatusServerError
			}
			if hdr.Status != expected {
				t.Errorf("version %s: status %s decoded as %s (expected %s)", v, s, hdr.Status, expected)
			}
		}
	}
}

// TestUnknownStatusByte tests that a status byte outside the version's
// encoding is reported as a protocol anomaly
func TestUnknownStatusByte(t *testing.T) {
	for _, v := range Versions {
		codec := SelectCodec(v)

		var buf bytes.Buffer
		w := transport.NewWriter(&buf)
		_ = w.WriteByte(ResponseMagic)
		_ = w.WriteVLong(1)
		_ = w.WriteByte(OpPingResponse)
		_ = w.WriteByte(0xEE) // not a status in any version
		_ = w.WriteByte(0)
		_ = w.Flush()

		_, err := codec.ReadResponseHeader(transport.NewReader(&buf), &HeaderParams{MessageID: 1})
		if !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("version %s: expected ErrUnknownStatus, got %v", v, err)
		}
	}

	// 0x87 is structured in 2.0 but not before it
	for _, v := range []Version{Version10, Version11, Version12, Version13} {
		codec := SelectCodec(v)

		var buf bytes.Buffer
		w := transport.NewWriter(&buf)
		_ = w.WriteByte(ResponseMagic)
		_ = w.WriteVLong(1)
		_ = w.WriteByte(OpErrorResponse)
		_ = w.WriteByte(byte(StatusCacheNotFound))
		_ = w.WriteByte(0)
		_ = w.Flush()

		_, err := codec.ReadResponseHeader(transport.NewReader(&buf), &HeaderParams{MessageID: 1})
		if !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("version %s: 0x87 should be rejected, got %v", v, err)
		}
	}
}

// TestInvalidMagic tests that a frame not starting with the response magic
// is rejected immediately
func TestInvalidMagic(t *testing.T) {
	for _, v := range Versions {
		codec := SelectCodec(v)
		r := transport.NewReader(bytes.NewReader([]byte{0x42, 0x00, 0x00}))
		if _, err := codec.ReadResponseHeader(r, &HeaderParams{}); !errors.Is(err, ErrInvalidMagic) {
			t.Errorf("version %s: expected ErrInvalidMagic, got %v", v, err)
		}
	}
}

// TestTopologySizeLimit tests that absurd wire-supplied member and segment
// counts are rejected before the decoder allocates for them
func TestTopologySizeLimit(t *testing.T) {
	const huge = 100_000_000

	t.Run("members", func(t *testing.T) {
		for _, v := range Versions {
			codec := SelectCodec(v)

			var buf bytes.Buffer
			w := transport.NewWriter(&buf)
			_ = w.WriteByte(ResponseMagic)
			_ = w.WriteVLong(1)
			_ = w.WriteByte(OpPingResponse)
			_ = w.WriteByte(byte(StatusSuccess))
			_ = w.WriteByte(1) // topology change marker
			_ = w.WriteVInt(3) // view ID
			if v == Version10 || v == Version11 {
				_ = w.WriteUint16(2)
				_ = w.WriteByte(HashFunctionXXH3)
				_ = w.WriteVInt(1 << 31)
				if v == Version11 {
					_ = w.WriteVInt(1)
				}
			}
			_ = w.WriteVInt(huge) // claimed member count, no member data follows
			_ = w.Flush()

			params := &HeaderParams{MessageID: 1, Intelligence: IntelligenceHashAware}
			_, err := codec.ReadResponseHeader(transport.NewReader(&buf), params)
			if !errors.Is(err, ErrTopologyTooLarge) {
				t.Errorf("version %s: expected ErrTopologyTooLarge, got %v", v, err)
			}
		}
	})

	t.Run("segments", func(t *testing.T) {
		for _, v := range []Version{Version12, Version13, Version20} {
			codec := SelectCodec(v)

			var buf bytes.Buffer
			w := transport.NewWriter(&buf)
			_ = w.WriteByte(ResponseMagic)
			_ = w.WriteVLong(1)
			_ = w.WriteByte(OpPingResponse)
			_ = w.WriteByte(byte(StatusSuccess))
			_ = w.WriteByte(1)
			_ = w.WriteVInt(3)
			_ = w.WriteVInt(1) // a single legitimate member
			_ = w.WriteString("10.0.0.1")
			_ = w.WriteUint16(11222)
			_ = w.WriteByte(HashFunctionXXH3)
			_ = w.WriteVInt(huge) // claimed segment count, no segment data follows
			_ = w.Flush()

			params := &HeaderParams{MessageID: 1, Intelligence: IntelligenceHashAware}
			_, err := codec.ReadResponseHeader(transport.NewReader(&buf), params)
			if !errors.Is(err, ErrTopologyTooLarge) {
				t.Errorf("version %s: expected ErrTopologyTooLarge, got %v", v, err)
			}
		}
	})
}

// TestErrorCodec tests the minimal pre-handshake codec: error frames only,
// never a topology payload, and no client-side use at all
func TestErrorCodec(t *testing.T) {
	codec := SelectCodec(VersionUnknown)

	resp := NewErrorResponse(VersionUnknown, 99, StatusUnknownVersion, "unknown protocol version")
	frame := encodeResponse(t, codec, resp, testView(4))

	r := transport.NewReader(bytes.NewReader(frame))
	magic, _ := r.ReadByte()
	if magic != ResponseMagic {
		t.Fatalf("expected response magic, got 0x%02x", magic)
	}
	messageID, _ := r.ReadVLong()
	if messageID != 99 {
		t.Errorf("message ID: expected 99, got %d", messageID)
	}
	opCode, _ := r.ReadByte()
	if opCode != OpErrorResponse {
		t.Errorf("expected the error opcode, got 0x%02x", opCode)
	}
	status, _ := r.ReadByte()
	if Status(status) != StatusUnknownVersion {
		t.Errorf("expected unknown-version status, got 0x%02x", status)
	}
	marker, _ := r.ReadByte()
	if marker != 0 {
		t.Error("the sentinel codec must never signal a topology change")
	}
	message, _ := r.ReadString()
	if message != "unknown protocol version" {
		t.Errorf("unexpected error message %q", message)
	}

	if err := codec.WriteRequestHeader(nil, nil); !errors.Is(err, ErrPreHandshake) {
		t.Errorf("WriteRequestHeader: expected ErrPreHandshake, got %v", err)
	}
	if _, err := codec.ReadResponseHeader(nil, nil); !errors.Is(err, ErrPreHandshake) {
		t.Errorf("ReadResponseHeader: expected ErrPreHandshake, got %v", err)
	}
}

// TestEncodeDeterminism tests that encoding the same response against the
// same view twice yields identical bytes
func TestEncodeDeterminism(t *testing.T) {
	view := testView(12)
	for _, v := range Versions {
		codec := SelectCodec(v)
		resp := &Response{
			Version:            v,
			MessageID:          5,
			OpCode:             OpGetResponse,
			Status:             StatusSuccess,
			Payload:            []byte{0x03, 'a', 'b', 'c'},
			ClientIntelligence: IntelligenceHashAware,
			TopologyID:         2,
		}
		a := encodeResponse(t, codec, resp, view)
		b := encodeResponse(t, codec, resp, view)
		if !bytes.Equal(a, b) {
			t.Errorf("version %s: two encodes of the same response differ", v)
		}

		// a new view ID must change the payload
		bumped := *view
		bumped.ID = view.ID + 1
		c := encodeResponse(t, codec, resp, &bumped)
		if bytes.Equal(a, c) {
			t.Errorf("version %s: bumping the view ID did not change the frame", v)
		}
	}
}

// TestConcurrentEncodes tests that a shared codec produces intact frames
// under concurrency (each goroutine owns its buffer; the codec holds no
// state)
func TestConcurrentEncodes(t *testing.T) {
	codec := SelectCodec(Version20)
	view := testView(8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				resp := &Response{
					Version:            Version20,
					MessageID:          id,
					OpCode:             OpPingResponse,
					Status:             StatusSuccess,
					ClientIntelligence: IntelligenceHashAware,
					TopologyID:         1,
				}
				var buf bytes.Buffer
				w := transport.NewWriter(&buf)
				if err := codec.WriteResponseHeader(w, resp, view); err != nil {
					t.Errorf("WriteResponseHeader failed: %v", err)
					return
				}
				if err := w.Flush(); err != nil {
					t.Errorf("flush failed: %v", err)
					return
				}

				params := &HeaderParams{MessageID: id, Intelligence: IntelligenceHashAware, TopologyID: 1}
				hdr, err := codec.ReadResponseHeader(transport.NewReader(&buf), params)
				if err != nil {
					t.Errorf("decode failed: %v", err)
					return
				}
				if hdr.MessageID != id {
					t.Errorf("frame corrupted: expected message ID %d, got %d", id, hdr.MessageID)
					return
				}
			}
		}(uint64(i + 1))
	}
	wg.Wait()
}
