package main

import (
	"os"

	"github.com/Kota8102/agentcore-mastra-react-stack/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
