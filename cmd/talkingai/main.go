package main

import (
	"os"

	"github.com/koscakluka/talkingai/cmd/talkingai/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
