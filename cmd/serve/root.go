package serve

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/hotrodkv/hotrod/cmd/util"
	"github.com/hotrodkv/hotrod/server"
	"github.com/hotrodkv/hotrod/topology"
)

var (
	serveCmdConfig = &server.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the hotrod server",
		Long:    `Start the hotrod server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is HOTROD_<flag> (e.g. HOTROD_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:11222", cmdUtil.WrapString("The address on which the server will listen (host:port)"))

	key = "caches"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of cache names to define in addition to the default cache"))

	key = "clustered"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Whether responses may carry cluster topology metadata. A non-clustered server never embeds topology payloads"))

	key = "members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(Clustered Mode) Comma-separated list of advertised cluster member addresses in the format 'host:port,host:port,...', including this node"))

	key = "segments"
	ServeCmd.PersistentFlags().Int(key, 256, cmdUtil.WrapString("(Clustered Mode) Number of hash segments the key space is divided into"))

	key = "key-owners"
	ServeCmd.PersistentFlags().Int(key, 2, cmdUtil.WrapString("(Clustered Mode) Number of copies of each key the cluster keeps"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 10, cmdUtil.WrapString("Per-request read/write timeout in seconds (0 disables deadlines)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for accepted connections (in seconds, 0 disables)"))

	key = "tcp-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 leaves the OS default)"))

	key = "tcp-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 leaves the OS default)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Clustered = viper.GetBool("clustered")
	serveCmdConfig.NumSegments = viper.GetInt("segments")
	serveCmdConfig.NumKeyOwners = viper.GetInt("key-owners")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TCP = server.TCPConf{
		NoDelay:         viper.GetBool("tcp-nodelay"),
		KeepAliveSec:    viper.GetInt("tcp-keepalive"),
		WriteBufferSize: viper.GetInt("tcp-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("tcp-read-buffer") * 1024,
	}

	// parse cache names
	serveCmdConfig.Caches = nil
	if caches := viper.GetString("caches"); caches != "" {
		for _, name := range strings.Split(caches, ",") {
			if name = strings.TrimSpace(name); name != "" {
				serveCmdConfig.Caches = append(serveCmdConfig.Caches, name)
			}
		}
	}

	// parse cluster members
	serveCmdConfig.Members = nil
	if members := viper.GetString("members"); members != "" {
		for _, member := range strings.Split(members, ",") {
			member = strings.TrimSpace(member)
			if _, _, err := net.SplitHostPort(member); err != nil {
				return fmt.Errorf("invalid cluster member %q (expected host:port): %v", member, err)
			}
			serveCmdConfig.Members = append(serveCmdConfig.Members, member)
		}
	} else if serveCmdConfig.Clustered {
		// error only if cluster mode
		return fmt.Errorf("members is required for a clustered server")
	}

	return nil
}

// run starts the hotrod server and blocks until interrupted
func run(_ *cobra.Command, _ []string) error {
	logger, err := newLogger(serveCmdConfig.LogLevel)
	if err != nil {
		return err
	}

	fmt.Println(serveCmdConfig.String())

	// the topology provider only exists on clustered nodes
	var provider topology.Provider
	if serveCmdConfig.Clustered {
		members := make([]topology.Member, 0, len(serveCmdConfig.Members))
		for _, addr := range serveCmdConfig.Members {
			member, err := parseMember(addr)
			if err != nil {
				return err
			}
			members = append(members, member)
		}
		provider = topology.NewRingProvider(serveCmdConfig.NumSegments, serveCmdConfig.NumKeyOwners, members...)
	}

	store := server.NewStore(serveCmdConfig.Caches...)
	srv := server.NewServer(*serveCmdConfig, store, provider, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	// block until interrupted
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	return srv.Close()
}

// parseMember converts a host:port string to a topology member
func parseMember(addr string) (topology.Member, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return topology.Member{}, fmt.Errorf("invalid member address %q: %v", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return topology.Member{}, fmt.Errorf("invalid member port %q: %v", portStr, err)
	}
	return topology.NewMember(host, uint16(port)), nil
}

// newLogger creates the process logger at the configured level
func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %v", level, err)
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger(), nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hotrod")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
