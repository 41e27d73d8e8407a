package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hotrodkv/hotrod/client"
	"github.com/hotrodkv/hotrod/protocol"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds common client connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, "localhost:11222", WrapString("Comma-separated list of server addresses (host:port). Further members are learned from topology updates"))

	key = "cache"
	cmd.PersistentFlags().String(key, "", WrapString("Name of the cache to address (empty selects the server's default cache)"))

	key = "protocol-version"
	cmd.PersistentFlags().String(key, "2.0", WrapString("Protocol version to speak (1.0, 1.1, 1.2, 1.3, 2.0)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 4, WrapString("Simultaneous connections per endpoint"))

	key = "return-values"
	cmd.PersistentFlags().Bool(key, false, WrapString("Ask write operations to return the previous value"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for client connections"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hotrod")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() (*client.ClientConfig, error) {
	version, err := protocol.ParseVersion(viper.GetString("protocol-version"))
	if err != nil {
		return nil, fmt.Errorf("invalid protocol version %q: %w", viper.GetString("protocol-version"), err)
	}

	return &client.ClientConfig{
		Endpoints:              strings.Split(viper.GetString("endpoints"), ","),
		CacheName:              viper.GetString("cache"),
		Version:                version,
		TimeoutSecond:          viper.GetInt("timeout"),
		ConnectionsPerEndpoint: viper.GetInt("conn-per-endpoint"),
		ForceReturnValues:      viper.GetBool("return-values"),
		TCPNoDelay:             viper.GetBool("tcp-nodelay"),
	}, nil
}

// NewClient builds a client from the viper-bound flags
func NewClient() (*client.Client, error) {
	config, err := GetClientConfig()
	if err != nil {
		return nil, err
	}
	return client.NewClient(*config)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
