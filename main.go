package main

import (
	"log"

	"github.com/thiagokokada/altcos-graph/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("altcos-graph: %v", err)
	}
}
