package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear document caches",
	Long: `Each indexed document has a cache directory holding its passages and
embeddings. Clearing a cache forces the next session to rebuild it.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status <file.pdf>",
	Short: "Show the cache state of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <file.pdf>",
	Short: "Remove the cache of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheClear,
}

func init() {
	cacheListCmd.Flags().Bool("json", false, "print the entries as JSON")
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	svc, err := need("cache", func(s *Services) bool { return s.Cache != nil })
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	infos, err := svc.Cache.List()
	if err != nil {
		return fmt.Errorf("listing caches: %w", err)
	}
	if asJSON {
		if infos == nil {
			infos = []domain.CacheInfo{}
		}
		return printJSON(cmd, infos)
	}
	if len(infos) == 0 {
		cmd.Println("No cached documents.")
		return nil
	}

	cmd.Printf("%-40s %-10s %s\n", "KEY", "STATE", "PASSAGES")
	for _, info := range infos {
		cmd.Printf("%-40s %-10s %s\n", info.Key, cacheState(info), passageCount(info))
	}
	return nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	svc, err := need("cache", func(s *Services) bool { return s.Cache != nil })
	if err != nil {
		return err
	}

	info := svc.Cache.Status(args[0])
	cmd.Printf("Key:       %s\n", info.Key)
	cmd.Printf("Directory: %s\n", info.Dir)
	cmd.Printf("State:     %s\n", cacheState(info))
	cmd.Printf("Passages:  %s\n", passageCount(info))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	svc, err := need("cache", func(s *Services) bool { return s.Cache != nil })
	if err != nil {
		return err
	}

	if err := svc.Cache.Clear(args[0]); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	cmd.Printf("Cleared cache for %s\n", args[0])
	return nil
}

func cacheState(info domain.CacheInfo) string {
	if info.Complete {
		return "complete"
	}
	return "not indexed"
}

func passageCount(info domain.CacheInfo) string {
	switch {
	case !info.Complete:
		return "-"
	case info.Passages < 0:
		return "unreadable"
	default:
		return strconv.Itoa(info.Passages)
	}
}
