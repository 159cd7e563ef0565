package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [folder-id]",
	Short: "Trigger an immediate sync for a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(daemonURL("/folders/"+args[0]+"/sync"), "application/json", nil)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusAccepted {
			return apiError(resp)
		}

		fmt.Println("sync requested")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
