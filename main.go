package main

import (
	"log"

	"github.com/spigell/hh-notifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
