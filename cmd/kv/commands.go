package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value] [lifespanSec] [maxIdleSec]",
		Short: "Stores the value for a key; lifespan and max-idle default to 0 (immortal)",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			lifespan, maxIdle, err := parseExpiration(args[2:])
			if err != nil {
				return err
			}
			if prev, err := kvClient.Put(opCtx(), []byte(key), []byte(value), lifespan, maxIdle); err != nil {
				return err
			} else if prev != nil {
				fmt.Printf("put successfully, previous=%s\n", prev)
			} else {
				fmt.Println("put successfully")
			}
			return nil
		},
	}
	putIfAbsentCmd = &cobra.Command{
		Use:   "putIfAbsent [key] [value] [lifespanSec] [maxIdleSec]",
		Short: "Stores the value for a key only if the key is not already set",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			lifespan, maxIdle, err := parseExpiration(args[2:])
			if err != nil {
				return err
			}
			stored, prev, err := kvClient.PutIfAbsent(opCtx(), []byte(key), []byte(value), lifespan, maxIdle)
			if err != nil {
				return err
			}
			if stored {
				fmt.Println("putIfAbsent successfully")
			} else if prev != nil {
				fmt.Printf("not applied, existing=%s\n", prev)
			} else {
				fmt.Println("not applied, key already set")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, ok, err := kvClient.Get(opCtx(), []byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, value=%s\n", key, ok, value)
			}
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Removes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			removed, prev, err := kvClient.Remove(opCtx(), []byte(key))
			if err != nil {
				return err
			}
			if prev != nil {
				fmt.Printf("key=%s, removed=%t, previous=%s\n", key, removed, prev)
			} else {
				fmt.Printf("key=%s, removed=%t\n", key, removed)
			}
			return nil
		},
	}
	containsCmd = &cobra.Command{
		Use:   "contains [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := kvClient.ContainsKey(opCtx(), []byte(key)); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
)

// opCtx is the context for a single one-shot CLI operation; the transport
// deadlines already bound it, so no extra timeout is stacked on top
func opCtx() context.Context {
	return context.Background()
}

// parseExpiration reads the optional lifespan and max-idle arguments (in
// whole seconds)
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
			return 0, 0, fmt.Errorf("maxIdleSec must be a number: %w", err)
		}
		maxIdle = time.Duration(sec) * time.Second
	}
	return lifespan, maxIdle, nil
}
