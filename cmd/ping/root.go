package ping

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hotrodkv/hotrod/client"
	"github.com/hotrodkv/hotrod/cmd/util"
)

// PingCmd probes a server for reachability and cache existence
var PingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Probe a hotrod server and check that the configured cache exists",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags
	util.SetupClientFlags(PingCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	c, err := util.NewClient()
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Ping(context.Background())
	switch result {
	case client.PingSuccess:
		fmt.Println("ping: success")
		return nil
	case client.PingCacheDoesNotExist:
		fmt.Println("ping: server reachable, but the cache does not exist")
		return nil
	default:
		return fmt.Errorf("ping failed: %w", err)
	}
}
