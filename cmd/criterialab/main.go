package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/config"
	"github.com/davicafu/criterialab/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "criterialab",
	Short: "Criteria queries over interchangeable storage backends",
}

// ---------------- Main ----------------
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	log := logger.Logger()
	defer log.Sync()

	var backend string
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend (memory|mongodb|sqlite|postgres|redis); overrides STORAGE_BACKEND")

	load := func() (*config.Config, error) {
		if backend != "" {
			os.Setenv("STORAGE_BACKEND", backend)
		}
		return config.LoadConfig()
	}

	rootCmd.AddCommand(
		newServeCmd(load, log),
		newSeedCmd(load, log),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
