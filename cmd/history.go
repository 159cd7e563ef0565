package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"lightsync/internal/model"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyFolder string
	historyStatus string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("limit", fmt.Sprint(historyN))
		if historyFolder != "" {
			params.Set("folder_id", historyFolder)
		}
		if historyStatus != "" {
			params.Set("status", historyStatus)
		}

		resp, err := http.Get(daemonURL("/history") + "?" + params.Encode())
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var entries []model.SyncLog
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, entry := range entries {
			status := "✓"
			if entry.Status == model.LogFailed {
				status = "✗"
			} else if entry.Status == model.LogPending {
				status = "?"
			}

			fmt.Printf("%s [%s] %-9s %s\n",
				status,
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
				entry.Action,
				entry.FilePath)
			if entry.ErrorMessage != "" {
				fmt.Printf("    %s\n", entry.ErrorMessage)
			}
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().StringVar(&historyFolder, "folder", "", "filter by folder ID")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (success, failed, pending)")
	rootCmd.AddCommand(historyCmd)
}
