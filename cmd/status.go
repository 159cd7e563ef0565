package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lightsync/internal/sync"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			Folders []sync.FolderStatus `json:"folders"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		if len(result.Folders) == 0 {
			fmt.Println("no folders configured")
			return nil
		}

		fmt.Printf("%-20s %-10s %-10s %-30s %-30s %s\n",
			"FOLDER", "WATCHER", "STATE", "LOCAL", "REMOTE", "FILES")

		for _, fs := range result.Folders {
			fmt.Printf("%-20s %-10s %-10s %-30s %-30s %d synced, %d pending, %d conflict, %d error\n",
				fs.Folder.Name,
				fs.Watcher.Status,
				fs.State,
				fs.Folder.LocalPath,
				fs.Folder.RemotePath,
				fs.Stats.SyncedFiles,
				fs.Stats.PendingFiles,
				fs.Stats.ConflictFiles,
				fs.Stats.ErrorFiles)
			if fs.Watcher.Message != "" {
				fmt.Printf("                     %s\n", fs.Watcher.Message)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
