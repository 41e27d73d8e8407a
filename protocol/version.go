package protocol

import "fmt"

// Version is the protocol version tag carried in every request header and
// fixed per connection once the first request has been decoded. Versions
// are totally ordered by their numeric value.
type Version byte

const (
	// VersionUnknown is the pre-handshake sentinel: no request has been
	// decoded yet, so the connection's wire dialect is not established.
	// Only the minimal error codec may speak for it.
	VersionUnknown Version = 0

	Version10 Version = 10
	Version11 Version = 11
	Version12 Version = 12
	Version13 Version = 13
	Version20 Version = 20
)

// Versions lists every supported protocol version in ascending order
var Versions = []Version{Version10, Version11, Version12, Version13, Version20}

// Supported reports whether v is a released protocol version
func (v Version) Supported() bool {
	switch v {
	case Version10, Version11, Version12, Version13, Version20:
		return true
	}
	return false
}

func (v Version) String() string {
	if v == VersionUnknown {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d", v/10, v%10)
}

// ParseVersion converts the "major.minor" form into a Version
func ParseVersion(s string) (Version, error) {
	var major, minor int
	if _, err := fmt.Sscanf(s, "%d.%d", &major, &minor); err != nil {
		return VersionUnknown, fmt.Errorf("protocol: invalid version %q", s)
	}
	v := Version(major*10 + minor)
	if !v.Supported() {
		return VersionUnknown, fmt.Errorf("protocol: unsupported version %q", s)
	}
	return v, nil
}
