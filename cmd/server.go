package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"lightsync/internal/model"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage WebDAV servers",
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all WebDAV servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/servers"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var servers []model.WebDavServer
		if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
			return err
		}

		if len(servers) == 0 {
			fmt.Println("no servers configured")
			return nil
		}

		fmt.Printf("%-36s %-20s %-40s %-12s %s\n", "ID", "NAME", "URL", "TYPE", "LAST TEST")
		for _, srv := range servers {
			lastTest := srv.LastTestStatus
			if srv.LastTestAt != nil {
				lastTest = fmt.Sprintf("%s (%s)",
					srv.LastTestStatus, srv.LastTestAt.Format("2006-01-02 15:04"))
			}
			fmt.Printf("%-36s %-20s %-40s %-12s %s\n",
				srv.ID, srv.Name, srv.URL, srv.ServerType, lastTest)
		}

		return nil
	},
}

var (
	serverName     string
	serverURL      string
	serverUser     string
	serverTimeout  int
	serverPassword string
)

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a WebDAV server",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := serverPassword
		if password == "" {
			fmt.Print("password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}

		payload := map[string]any{
			"name":        serverName,
			"url":         serverURL,
			"username":    serverUser,
			"timeout_sec": serverTimeout,
			"password":    password,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		resp, err := http.Post(daemonURL("/servers"), "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusCreated {
			return apiError(resp)
		}

		var created model.WebDavServer
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return err
		}

		fmt.Printf("server added: id=%s name=%s\n", created.ID, created.Name)
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a WebDAV server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, _ := http.NewRequest(http.MethodDelete, daemonURL("/servers/"+args[0]), nil)
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

		fmt.Printf("server %s removed\n", args[0])
		return nil
	},
}

var serverTestCmd = &cobra.Command{
	Use:   "test [id]",
	Short: "Test the connection to a WebDAV server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(daemonURL("/servers/"+args[0]+"/test"), "application/json", nil)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return apiError(resp)
		}

		var result struct {
			ServerType string `json:"server_type"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return err
		}

		fmt.Printf("connection ok, server type: %s\n", result.ServerType)
		return nil
	},
}

func init() {
	serverAddCmd.Flags().StringVar(&serverName, "name", "", "Server name")
	serverAddCmd.Flags().StringVar(&serverURL, "url", "", "WebDAV base URL")
	serverAddCmd.Flags().StringVar(&serverUser, "username", "", "Username for basic auth")
	serverAddCmd.Flags().IntVar(&serverTimeout, "timeout", 30, "Per-operation timeout in seconds")
	serverAddCmd.Flags().StringVar(&serverPassword, "password", "",
		"Password (prompted when omitted)")
	_ = serverAddCmd.MarkFlagRequired("name")
	_ = serverAddCmd.MarkFlagRequired("url")
	_ = serverAddCmd.MarkFlagRequired("username")

	serverCmd.AddCommand(serverListCmd, serverAddCmd, serverRemoveCmd, serverTestCmd)
	rootCmd.AddCommand(serverCmd)
}
