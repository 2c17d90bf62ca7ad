package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abcfe/hive-wallet/hive"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/abcfe/hive-wallet/wallet"
	"github.com/spf13/cobra"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Key generation, derivation and detection",
	}

	cmd.AddCommand(keysGenerateCmd())
	cmd.AddCommand(keysDeriveCmd())
	cmd.AddCommand(keysDetectCmd())

	return cmd
}

func printKeySet(keys *wallet.KeySet, showPrivate bool, path func(prt.Role) string) {
	for _, role := range prt.Roles {
		kp, _ := keys.Get(role)
		fmt.Printf("[%s]\n", role)
		if path != nil {
			fmt.Printf("  Path:    %s\n", path(role))
		}
		fmt.Printf("  Public:  %s\n", kp.Public)
		if showPrivate {
			fmt.Printf("  Private: %s\n", kp.Private.WIF())
		}
	}
}

func keysGenerateCmd() *cobra.Command {
	var (
		words        int
		accountIndex uint32
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new mnemonic and its role keys",
		Run: func(cmd *cobra.Command, args []string) {
			mnemonic, err := wallet.NewMnemonic(words)
			if err != nil {
				fmt.Printf("Failed to generate mnemonic: %v\n", err)
				os.Exit(1)
			}
			keys, err := wallet.DeriveHierarchical(mnemonic, accountIndex)
			if err != nil {
				fmt.Printf("Failed to derive keys: %v\n", err)
				os.Exit(1)
			}

			fmt.Println("=== New Mnemonic ===")
			fmt.Println("")
			fmt.Println("IMPORTANT: Write down your mnemonic phrase and keep it safe!")
			fmt.Println("")
			fmt.Printf("Mnemonic: %s\n", mnemonic)
			fmt.Println("")
			fmt.Println("=== Public Keys (account creation authorities) ===")
			printKeySet(keys, false, func(r prt.Role) string { return wallet.HierarchicalPath(accountIndex, r) })
		},
	}

	cmd.Flags().IntVarP(&words, "words", "n", 12, "Number of words (12, 15, 18, 21, 24)")
	cmd.Flags().Uint32VarP(&accountIndex, "account-index", "i", 0, "Hierarchical account index")
	return cmd
}

func keysDeriveCmd() *cobra.Command {
	var (
		mnemonic     string
		username     string
		password     string
		accountIndex uint32
		showPrivate  bool
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive role keys from a mnemonic or a master password",
		Run: func(cmd *cobra.Command, args []string) {
			switch {
			case mnemonic != "":
				keys, err := wallet.DeriveHierarchical(mnemonic, accountIndex)
				if err != nil {
					fmt.Printf("Failed to derive keys: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("=== Hierarchical Keys ===")
				printKeySet(keys, showPrivate, func(r prt.Role) string { return wallet.HierarchicalPath(accountIndex, r) })
			case username != "" && password != "":
				fmt.Println("=== Master Password Keys ===")
				printKeySet(wallet.DeriveLegacyAll(username, password), showPrivate, nil)
			default:
				fmt.Println("Please provide --mnemonic, or --username with --password")
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&mnemonic, "mnemonic", "m", "", "Mnemonic phrase")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Master password")
	cmd.Flags().Uint32VarP(&accountIndex, "account-index", "i", 0, "Hierarchical account index")
	cmd.Flags().BoolVar(&showPrivate, "private", false, "Also print private keys (WIF)")
	return cmd
}

func keysDetectCmd() *cobra.Command {
	var (
		username   string
		credential string
		role       string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect how a credential derives the keys of an on-chain account",
		Run: func(cmd *cobra.Command, args []string) {
			r, ok := prt.ParseRole(role)
			if !ok {
				fmt.Printf("Unknown role %q\n", role)
				os.Exit(1)
			}

			cfg, err := loadConfig()
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			chain, err := hive.NewClientFromConfig(cfg)
			if err != nil {
				fmt.Printf("Failed to create chain client: %v\n", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Chain.TimeoutSec)*time.Second*time.Duration(len(cfg.Chain.Nodes)))
			defer cancel()

			det := wallet.NewDetector(chain, wallet.WithAccountIndex(cfg.Chain.AccountIndex))
			d, err := det.Detect(ctx, username, credential, r)
			if err != nil {
				fmt.Printf("Detection failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s (%s): %s\n", username, r, d)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account name")
	cmd.Flags().StringVar(&credential, "credential", "", "Mnemonic or master password")
	cmd.Flags().StringVarP(&role, "role", "r", "", "Role to check (default active)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("credential")
	return cmd
}
