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
	sessionsN      int
	sessionsFolder string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "View recent sync sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		params.Set("limit", fmt.Sprint(sessionsN))
		if sessionsFolder != "" {
			params.Set("folder_id", sessionsFolder)
		}

		resp, err := http.Get(daemonURL("/sessions") + "?" + params.Encode())
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var sessions []model.SyncSession
		if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Println("no sessions yet")
			return nil
		}

		fmt.Printf("%-6s %-10s %-20s %-8s %-8s %-8s %-8s %s\n",
			"ID", "STATUS", "STARTED", "UP", "DOWN", "DEL", "ERR", "BYTES")
		for _, s := range sessions {
			fmt.Printf("%-6d %-10s %-20s %-8d %-8d %-8d %-8d %d\n",
				s.ID, s.Status,
				s.StartedAt.Format("2006-01-02 15:04:05"),
				s.FilesUploaded, s.FilesDownloaded, s.FilesDeleted,
				s.ErrorsCount, s.TotalBytes)
			if s.ErrorMessage != "" {
				fmt.Printf("       %s\n", s.ErrorMessage)
			}
		}

		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsN, "n", 20, "number of sessions to show")
	sessionsCmd.Flags().StringVar(&sessionsFolder, "folder", "", "filter by folder ID")
	rootCmd.AddCommand(sessionsCmd)
}
