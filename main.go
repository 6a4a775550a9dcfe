package main

import "github.com/diogo/agentdeck/internal/commands"

func main() {
	commands.Execute()
}
