package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hotrodkv/hotrod/protocol"
)

// ClientConfig holds all configuration parameters for a Hot Rod client
type ClientConfig struct {
	// Endpoints are the bootstrap server addresses (host:port). The
	// client learns further members from topology updates.
	Endpoints []string

	// CacheName addresses the target cache; empty selects the server's
	// default cache
	CacheName string

	// Version is the protocol version to speak; defaults to 2.0
	Version protocol.Version

	// TimeoutSecond bounds each operation's transport deadlines; zero
	// disables deadlines
	TimeoutSecond int

	// ConnectionsPerEndpoint caps the pool size per endpoint
	ConnectionsPerEndpoint int

	// ForceReturnValues asks write operations to return previous values
	ForceReturnValues bool

	// Intelligence is the topology detail level announced to servers;
	// defaults to hash-distribution awareness
	Intelligence byte

	// TCPNoDelay disables Nagle's algorithm on client connections
	TCPNoDelay bool
}

// withDefaults fills unset fields
func (c ClientConfig) withDefaults() ClientConfig {
	if c.Version == protocol.VersionUnknown {
		c.Version = protocol.Version20
	}
	if c.ConnectionsPerEndpoint <= 0 {
		c.ConnectionsPerEndpoint = 4
	}
	if c.Intelligence == 0 {
		c.Intelligence = protocol.IntelligenceHashAware
	}
	return c
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Hot Rod Client")
	addField("Protocol Version", c.Version.String())
	addField("Cache", c.CacheName)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Conns Per Endpoint", strconv.Itoa(c.ConnectionsPerEndpoint))
	addField("Force Return Values", strconv.FormatBool(c.ForceReturnValues))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
