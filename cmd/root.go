package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hotrodkv/hotrod/cmd/kv"
	"github.com/hotrodkv/hotrod/cmd/ping"
	"github.com/hotrodkv/hotrod/cmd/serve"
	"github.com/hotrodkv/hotrod/cmd/shell"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hotrod",
		Short: "clustered key-value cache speaking the Hot Rod protocol",
		Long: fmt.Sprintf(`hotrod (v%s)

A key-value cache server and client speaking the versioned Hot Rod
binary protocol, with inline cluster topology updates piggybacked on
responses.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hotrod",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hotrod v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(ping.PingCmd)
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
