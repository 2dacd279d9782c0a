package main

import "github.com/strrl/cc-launcher/cmd/cc-launcher/commands"

func main() {
	commands.Execute()
}
