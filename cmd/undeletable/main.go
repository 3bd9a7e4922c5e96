package main

import (
	"os"

	"github.com/seb7887/gofw/internal/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := admin.NewRootCmd(func(cmd *cobra.Command, configDir string) (*admin.App, error) {
		cfg, err := admin.LoadConfig(configDir)
		if err != nil {
			return nil, err
		}
		return admin.NewApp(cmd.Context(), cfg)
	})

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, so we just need to exit.
		os.Exit(1)
	}
}
