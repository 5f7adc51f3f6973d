package main

import (
	"os"

	"github.com/Innoddu/speakflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
