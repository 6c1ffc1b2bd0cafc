package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// A very simple CLI tool for the administration of crosstalk rooms.

var serverAddr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "crosstalk-admin",
		Short: "administration of crosstalk rooms",
	}
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:8000", "base URL of the crosstalk server")

	createRoomCmd := &cobra.Command{
		Use:   "create-room [direction]",
		Short: "create a new room with the given translation direction (en-es or es-en)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]string{"direction": args[0]})
			if err != nil {
				return err
			}
			resp, err := http.Post(serverAddr+"/rooms", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(resp)
		},
	}

	checkRoomCmd := &cobra.Command{
		Use:   "check-room [code]",
		Short: "check whether a room exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(serverAddr + "/rooms/" + args[0])
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(resp)
		},
	}

	listRoomsCmd := &cobra.Command{
		Use:   "list-rooms",
		Short: "list all live rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(serverAddr + "/rooms")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(resp)
		},
	}

	rootCmd.AddCommand(createRoomCmd, checkRoomCmd, listRoomsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s: %s", resp.Status, raw)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
