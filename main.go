package main

import (
	"os"
	"time"

	"github.com/Mmx233/PatchSync/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Set with -ldflags "-X main.version=..."
var version string

func init() {
	zerolog.DurationFieldUnit = time.Millisecond
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	})
}

func main() {
	if version != "" {
		cmd.Version = version
	}
	cmd.Execute()
}
