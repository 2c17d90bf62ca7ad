package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/abcfe/hive-wallet/common/crypto"
	"github.com/abcfe/hive-wallet/credential"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/abcfe/hive-wallet/storage"
	"github.com/spf13/cobra"
)

func openStore() (credential.Store, func()) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	db, err := storage.InitDB(cfg)
	if err != nil {
		fmt.Printf("Failed to open credential db: %v\n", err)
		os.Exit(1)
	}
	return credential.NewStore(db), func() { db.Close() }
}

func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored signing credentials",
	}

	cmd.AddCommand(credentialsSetCmd())
	cmd.AddCommand(credentialsShowCmd())
	cmd.AddCommand(credentialsRemoveCmd())

	return cmd
}

func credentialsSetCmd() *cobra.Command {
	var rec credential.Record

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store credentials for a user",
		Run: func(cmd *cobra.Command, args []string) {
			if rec.PostingKey != "" {
				if _, err := crypto.ParseWIF(rec.PostingKey); err != nil {
					fmt.Printf("Invalid posting key: %v\n", err)
					os.Exit(1)
				}
				if rec.LoginType == "" {
					rec.LoginType = prt.LoginTypePrivateKey
				}
			}

			store, closeFn := openStore()
			defer closeFn()

			if err := store.Save(rec); err != nil {
				fmt.Printf("Failed to save credentials: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Credentials saved for %s\n", rec.Username)
		},
	}

	cmd.Flags().StringVarP(&rec.Username, "username", "u", "", "Account name")
	cmd.Flags().StringVar(&rec.PostingKey, "posting-key", "", "Posting private key (WIF)")
	cmd.Flags().StringVar(&rec.AccessToken, "access-token", "", "Hosted signer access token")
	cmd.Flags().StringVar(&rec.RefreshToken, "refresh-token", "", "Hosted signer refresh token")
	cmd.Flags().StringVar(&rec.LoginType, "login-type", "", "keychain, hivesigner or privateKey")
	cmd.MarkFlagRequired("username")
	return cmd
}

func credentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [username]",
		Short: "Show stored credentials (masked)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store, closeFn := openStore()
			defer closeFn()

			rec, ok := store.Get(args[0])
			if !ok {
				fmt.Printf("No credentials stored for %s\n", args[0])
				return
			}
			fmt.Printf("Username:      %s\n", rec.Username)
			fmt.Printf("Login type:    %s\n", rec.LoginType)
			fmt.Printf("Posting key:   %s\n", mask(rec.PostingKey))
			fmt.Printf("Access token:  %s\n", mask(rec.AccessToken))
			fmt.Printf("Refresh token: %s\n", mask(rec.RefreshToken))
		},
	}
}

func credentialsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [username]",
		Short: "Delete stored credentials",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store, closeFn := openStore()
			defer closeFn()

			if err := store.Remove(args[0]); err != nil {
				fmt.Printf("Failed to remove credentials: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Credentials removed for %s\n", args[0])
		},
	}
}
