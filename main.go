package main

import (
	"log"

	"github.com/council-ai/council/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
