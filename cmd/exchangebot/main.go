package main

import (
	"log"

	corecmd "github.com/m3rciful/exchangebot/core/cmd"
	"github.com/m3rciful/exchangebot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: wire,
	})
	if err != nil {
		log.Fatal(err)
	}
}
