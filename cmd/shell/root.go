package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/hotrodkv/hotrod/client"
	"github.com/hotrodkv/hotrod/cmd/util"
)

const helpString = `commands:
  get <key>                                   read the value for a key
  put <key> <value> [lifespanSec] [idleSec]   store a value
  putifabsent <key> <value> [lifespanSec] [idleSec]
                                              store a value if the key is unset
  remove <key>                                remove a key
  contains <key>                              check if a key exists
  ping                                        probe the server and cache
  topology                                    print known endpoints and view id
  .help                                       show this help
  .exit                                       quit`

// ShellCmd runs an interactive client console
var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive hotrod client console",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags
	util.SetupClientFlags(ShellCmd)
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

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "hotrod> ",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("hotrod shell (type '.help' for commands, '.exit' to quit)")
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == ".help" {
			fmt.Println(helpString)
			continue
		} else if line == ".exit" {
			break
		} else if line == "" {
			continue
		}

		handleCommand(c, line)
	}
	return nil
}

func handleCommand(c *client.Client, line string) {
	fields := strings.Fields(line)
	command, args := strings.ToLower(fields[0]), fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch command {
	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")
			return
		}
		value, ok, err := c.Get(ctx, []byte(args[0]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("GET: key=%s, found=%t, value=%s\n", args[0], ok, value)

	case "put":
		if len(args) < 2 || len(args) > 4 {
			fmt.Println("usage: put <key> <value> [lifespanSec] [idleSec]")
			return
		}
		lifespan, maxIdle, err := parseExpiration(args[2:])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if _, err := c.Put(ctx, []byte(args[0]), []byte(args[1]), lifespan, maxIdle); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("PUT: key=%s, value=%s\n", args[0], args[1])

	case "putifabsent":
		if len(args) < 2 || len(args) > 4 {
			fmt.Println("usage: putifabsent <key> <value> [lifespanSec] [idleSec]")
			return
		}
		lifespan, maxIdle, err := parseExpiration(args[2:])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		stored, _, err := c.PutIfAbsent(ctx, []byte(args[0]), []byte(args[1]), lifespan, maxIdle)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("PUTIFABSENT: key=%s, stored=%t\n", args[0], stored)

	case "remove":
		if len(args) != 1 {
			fmt.Println("usage: remove <key>")
			return
		}
		removed, _, err := c.Remove(ctx, []byte(args[0]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("REMOVE: key=%s, removed=%t\n", args[0], removed)

	case "contains":
		if len(args) != 1 {
			fmt.Println("usage: contains <key>")
			return
		}
		found, err := c.ContainsKey(ctx, []byte(args[0]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("CONTAINS: key=%s, found=%t\n", args[0], found)

	case "ping":
		result, err := c.Ping(ctx)
		if err != nil && result == client.PingFail {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("PING: %s\n", result)

	case "topology":
		fmt.Printf("TOPOLOGY: viewID=%d, endpoints=%s\n", c.TopologyID(), strings.Join(c.Endpoints(), ", "))

	default:
		fmt.Printf("unknown command %q (type '.help' for commands)\n", command)
	}
}

func parseExpiration(args []string) (lifespan, maxIdle time.Duration, err error) {
	if len(args) > 0 {
		sec, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("lifespanSec must be a number: %w", err)
		}
		lifespan = time.Duration(sec) * time.Second
	}
	if len(args) > 1 {
		sec, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("idleSec must be a number: %w", err)
		}
		maxIdle = time.Duration(sec) * time.Second
	}
	return lifespan, maxIdle, nil
}
