package server

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// TCP tuning
// --------------------------------------------------------------------------

// TCPConf holds socket-level tuning applied to every accepted connection
type TCPConf struct {
	NoDelay         bool
	KeepAliveSec    int
	ReadBufferSize  int
	WriteBufferSize int
}

// --------------------------------------------------------------------------
// Server configuration
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a Hot Rod server
// node. It is passed explicitly into constructors; library code never
// reads ambient state.
type ServerConfig struct {
	// Endpoint is the host:port the server listens on
	Endpoint string

	// Caches are the cache names defined on this node. The default
	// cache is always defined.
	Caches []string

	// Clustered controls whether responses may carry topology metadata.
	// A non-clustered server never embeds topology payloads.
	Clustered bool

	// Members are the advertised cluster member addresses (host:port),
	// including this node. Only meaningful when Clustered is set.
	Members []string

	// NumSegments and NumKeyOwners define the ownership geometry
	// advertised to hash-aware clients
	NumSegments  int
	NumKeyOwners int

	// TimeoutSecond bounds the per-request read and write deadlines;
	// zero disables deadlines
	TimeoutSecond int64

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	TCP TCPConf
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Hot Rod Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Caches", strings.Join(c.Caches, ", "))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Cluster")
	addField("Clustered", strconv.FormatBool(c.Clustered))
	if c.Clustered {
		addField("Segments", strconv.Itoa(c.NumSegments))
		addField("Key Owners", strconv.Itoa(c.NumKeyOwners))
		sb.WriteString("  Members:\n")
		for i, m := range c.Members {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", i, m))
		}
	}

	return sb.String()
}
