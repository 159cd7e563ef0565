package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lightsync/internal/model"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [folder-id] [path] [accept-local|accept-remote|keep-both]",
	Short: "Resolve a sync conflict",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]string{
			"path":       args[1],
			"resolution": args[2],
		})
		if err != nil {
			return err
		}

		resp, err := http.Post(
			daemonURL("/folders/"+args[0]+"/resolve"),
			"application/json",
			bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return apiError(resp)
		}

		var session model.SyncSession
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return err
		}

		fmt.Printf("resolved: %s (%d uploaded, %d downloaded, %d deleted)\n",
			session.Status, session.FilesUploaded, session.FilesDownloaded, session.FilesDeleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
