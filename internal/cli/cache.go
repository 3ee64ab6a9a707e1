package cli

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the local dataset cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "delete all cached dataset files",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	store, err := cache.New(e.cfg.CacheDir, e.logger, e.metrics)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	e.logger.Info("cache cleared", "dir", store.Dir())
	return nil
}
