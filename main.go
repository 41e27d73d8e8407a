package main

import "github.com/hotrodkv/hotrod/cmd"

func main() {
	cmd.Execute()
}
