package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lightsync/internal/model"
	"lightsync/internal/sync"

	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage sync folders",
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sync folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/folders"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var statuses []sync.FolderStatus
		if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
			return err
		}

		if len(statuses) == 0 {
			fmt.Println("no folders configured")
			return nil
		}

		fmt.Printf("%-36s %-20s %-10s %-30s %s\n", "ID", "NAME", "WATCHER", "LOCAL", "REMOTE")
		for _, fs := range statuses {
			fmt.Printf("%-36s %-20s %-10s %-30s %s\n",
				fs.Folder.ID, fs.Folder.Name, fs.Watcher.Status,
				fs.Folder.LocalPath, fs.Folder.RemotePath)
		}

		return nil
	},
}

var (
	folderName      string
	folderLocal     string
	folderRemote    string
	folderServer    string
	folderDirection string
	folderPolicy    string
	folderInterval  int
	folderIgnore    []string
)

var folderAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new sync folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		folder := model.SyncFolder{
			Name:           folderName,
			LocalPath:      folderLocal,
			RemotePath:     folderRemote,
			ServerID:       folderServer,
			Direction:      model.SyncDirection(folderDirection),
			ConflictPolicy: model.ConflictPolicy(folderPolicy),
			IntervalMin:    folderInterval,
			IgnorePatterns: folderIgnore,
		}

		body, err := json.Marshal(folder)
		if err != nil {
			return err
		}

		resp, err := http.Post(daemonURL("/folders"), "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusCreated {
			return apiError(resp)
		}

		var created model.SyncFolder
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return err
		}

		fmt.Printf("folder added: id=%s name=%s\n", created.ID, created.Name)
		return nil
	},
}

var folderRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a sync folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, _ := http.NewRequest(http.MethodDelete, daemonURL("/folders/"+args[0]), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusNoContent {
			return apiError(resp)
		}

		fmt.Printf("folder %s removed\n", args[0])
		return nil
	},
}

var folderStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Start syncing a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postFolderAction(args[0], "start", "started")
	},
}

var folderStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop syncing a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postFolderAction(args[0], "stop", "stopped")
	},
}

func postFolderAction(id, action, done string) error {
	resp, err := http.Post(daemonURL("/folders/"+id+"/"+action), "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon not running: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	fmt.Printf("folder %s %s\n", id, done)
	return nil
}

func init() {
	folderAddCmd.Flags().StringVar(&folderName, "name", "", "Folder name")
	folderAddCmd.Flags().StringVar(&folderLocal, "local", "", "Local directory path")
	folderAddCmd.Flags().StringVar(&folderRemote, "remote", "", "Remote path on the server")
	folderAddCmd.Flags().StringVar(&folderServer, "server", "", "WebDAV server ID")
	folderAddCmd.Flags().StringVar(&folderDirection, "direction", "bidirectional",
		"Sync direction (bidirectional, upload-only, download-only)")
	folderAddCmd.Flags().StringVar(&folderPolicy, "policy", "newer-wins",
		"Conflict policy (newer-wins, manual)")
	folderAddCmd.Flags().IntVar(&folderInterval, "interval", 10, "Periodic sync interval in minutes")
	folderAddCmd.Flags().StringSliceVar(&folderIgnore, "ignore", nil, "Ignore patterns")
	_ = folderAddCmd.MarkFlagRequired("name")
	_ = folderAddCmd.MarkFlagRequired("local")
	_ = folderAddCmd.MarkFlagRequired("remote")
	_ = folderAddCmd.MarkFlagRequired("server")

	folderCmd.AddCommand(folderListCmd, folderAddCmd, folderRemoveCmd, folderStartCmd, folderStopCmd)
	rootCmd.AddCommand(folderCmd)
}
