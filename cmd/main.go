package main

import (
	"os"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
