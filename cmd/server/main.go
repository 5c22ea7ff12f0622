package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := Execute(); err != nil {
		log.Error().Err(err).Msg("motoexpress exited with an error")
		os.Exit(1)
	}
}
