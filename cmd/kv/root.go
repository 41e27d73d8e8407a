package kv

import (
	"github.com/spf13/cobra"

	"github.com/hotrodkv/hotrod/client"
	"github.com/hotrodkv/hotrod/cmd/util"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform cache operations",
		PersistentPreRunE: setupKVClient,
		PersistentPostRun: teardownKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(putIfAbsentCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(removeCmd)
	KeyValueCommands.AddCommand(containsCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the cache client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvClient, err = util.NewClient()
	return err
}

func teardownKVClient(_ *cobra.Command, _ []string) {
	if kvClient != nil {
		_ = kvClient.Close()
	}
}
