package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abcfe/hive-wallet/app"
	"github.com/abcfe/hive-wallet/broadcast"
	"github.com/abcfe/hive-wallet/internal/apiclient"
	"github.com/spf13/cobra"
)

func broadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Sign and broadcast with stored credentials",
	}

	var username, id, payload string
	customJSON := &cobra.Command{
		Use:   "custom-json",
		Short: "Broadcast a posting custom_json",
		Run: func(cmd *cobra.Command, args []string) {
			res, err := runCustomJSON(username, id, payload)
			if err != nil {
				fmt.Printf("Broadcast failed: %v\n", err)
				os.Exit(1)
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
		},
	}
	customJSON.Flags().StringVarP(&username, "username", "u", "", "Account name")
	customJSON.Flags().StringVar(&id, "id", "", "custom_json id")
	customJSON.Flags().StringVar(&payload, "json", "", "JSON payload")
	customJSON.MarkFlagRequired("username")
	customJSON.MarkFlagRequired("id")
	customJSON.MarkFlagRequired("json")

	cmd.AddCommand(customJSON)
	return cmd
}

func runCustomJSON(username, id, payload string) (*broadcast.Result, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	application, err := app.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize application: %w", err)
	}
	defer application.Cleanup()

	return application.Mutation.DispatchJSON(context.Background(), username, id, payload)
}

func remoteCmd() *cobra.Command {
	var (
		host  string
		port  int
		token string
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a running walletd",
	}
	cmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "walletd host")
	cmd.PersistentFlags().IntVar(&port, "port", 8090, "walletd REST port")
	cmd.PersistentFlags().StringVar(&token, "token", "", "API token for signing routes (default: Server.APIToken from config)")

	var username, cred, role string
	detect := &cobra.Command{
		Use:   "detect",
		Short: "Detect derivation through the daemon",
		Run: func(cmd *cobra.Command, args []string) {
			client := apiclient.NewClient(host, port)
			if !client.IsAlive() {
				fmt.Printf("walletd is not reachable at %s:%d\n", host, port)
				os.Exit(1)
			}
			d, err := client.Detect(username, cred, role)
			if err != nil {
				fmt.Printf("Detection failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s (%s): %s\n", d.Username, d.Role, d.Derivation)
		},
	}
	detect.Flags().StringVarP(&username, "username", "u", "", "Account name")
	detect.Flags().StringVar(&cred, "credential", "", "Mnemonic or master password")
	detect.Flags().StringVarP(&role, "role", "r", "", "Role to check (default active)")

	var jsonUser, jsonID, jsonPayload string
	custom := &cobra.Command{
		Use:   "custom-json",
		Short: "Broadcast a custom_json through the daemon",
		Run: func(cmd *cobra.Command, args []string) {
			if token == "" {
				if cfg, err := loadConfig(); err == nil {
					token = cfg.Server.APIToken
				}
			}
			res, err := apiclient.NewClient(host, port).WithToken(token).CustomJSON(jsonUser, jsonID, json.RawMessage(jsonPayload))
			if err != nil {
				fmt.Printf("Broadcast failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("tx %s via %s (block %d)\n", res.TxID, res.Backend, res.BlockNum)
		},
	}
	custom.Flags().StringVarP(&jsonUser, "username", "u", "", "Account name")
	custom.Flags().StringVar(&jsonID, "id", "", "custom_json id")
	custom.Flags().StringVar(&jsonPayload, "json", "", "JSON payload")

	cmd.AddCommand(detect)
	cmd.AddCommand(custom)
	return cmd
}
