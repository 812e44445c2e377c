package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider/gmail"
	"github.com/mailbridge/mailbridge/internal/store"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage connected mailbox accounts",
	}
	cmd.AddCommand(newAccountConnectCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountSetDefaultCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	return cmd
}

func newAccountConnectCmd() *cobra.Command {
	var (
		providerFlag string
		email        string
		grantID      string
		code         string

		imapHost     string
		imapPort     int
		imapUser     string
		imapPassword string
		smtpHost     string
		smtpPort     int
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a mailbox account",
		Long: `Connect a mailbox account.

Google and Microsoft accounts need either an existing grant (--grant with
--email) or an OAuth authorization code (--code, exchanged via Nylas).
Google accounts can also use a local OAuth flow when Gmail credentials are
configured. IMAP accounts take the server settings directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := newService(cfg, db, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			kind := domain.ProviderKind(providerFlag)

			switch kind {
			case domain.ProviderIMAP:
				if imapHost == "" || imapUser == "" || imapPassword == "" {
					return fmt.Errorf("imap accounts require --host, --username, and --password")
				}
				raw, err := json.Marshal(map[string]any{
					"host":      imapHost,
					"port":      imapPort,
					"username":  imapUser,
					"password":  imapPassword,
					"smtp_host": smtpHost,
					"smtp_port": smtpPort,
				})
				if err != nil {
					return fmt.Errorf("failed to encode imap credentials: %w", err)
				}
				grantID = string(raw)
				if email == "" {
					email = imapUser
				}

			case domain.ProviderGoogle, domain.ProviderMicrosoft:
				switch {
				case code != "":
					nc := newNylasClient(cfg)
					if nc == nil {
						return fmt.Errorf("code exchange requires a Nylas API key")
					}
					grant, err := nc.ExchangeCode(ctx, code, cfg.Nylas.ClientID, cfg.Nylas.RedirectURI)
					if err != nil {
						return fmt.Errorf("failed to exchange code: %w", err)
					}
					grantID = grant.GrantID
					email = grant.Email

				case grantID == "" && kind == domain.ProviderGoogle:
					if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" {
						return fmt.Errorf("provide --grant and --email, or configure Gmail OAuth credentials")
					}
					if email == "" {
						return fmt.Errorf("--email is required for the Gmail OAuth flow")
					}
					gc := gmail.New(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, store.NewKeyringSecretStore())
					fmt.Println("Starting Gmail OAuth flow...")
					if err := gc.Authenticate(ctx, email); err != nil {
						return fmt.Errorf("failed to authenticate: %w", err)
					}
					// The grant is the token's keyring key.
					grantID = email
				}

			default:
				return fmt.Errorf("unknown provider: %s (use google, microsoft, or imap)", providerFlag)
			}

			if grantID == "" || email == "" {
				return fmt.Errorf("--grant and --email are required without --code")
			}

			acct, err := svc.Connect(ctx, userFlag, email, grantID, kind)
			if err != nil {
				return fmt.Errorf("failed to connect account: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccount(acct))
			}

			fmt.Printf("Account connected: %s (%s)\n", acct.EmailAddress, acct.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerFlag, "provider", "google", "account provider (google, microsoft, imap)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&grantID, "grant", "", "existing provider grant id")
	cmd.Flags().StringVar(&code, "code", "", "OAuth authorization code to exchange")
	cmd.Flags().StringVar(&imapHost, "host", "", "IMAP server host")
	cmd.Flags().IntVar(&imapPort, "port", 993, "IMAP server port")
	cmd.Flags().StringVar(&imapUser, "username", "", "IMAP username")
	cmd.Flags().StringVar(&imapPassword, "password", "", "IMAP password")
	cmd.Flags().StringVar(&smtpHost, "smtp-host", "", "SMTP host (defaults to the IMAP host)")
	cmd.Flags().IntVar(&smtpPort, "smtp-port", 587, "SMTP port")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context(), userFlag)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccounts(accounts))
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts connected. Run 'mailbridge account connect' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tPROVIDER\tSTATUS\tDEFAULT\tLAST SYNC")
			for _, a := range accounts {
				lastSync := "never"
				if a.LastSyncedAt != nil {
					lastSync = a.LastSyncedAt.Format(time.DateTime)
				}
				def := ""
				if a.IsDefault {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.EmailAddress, a.Provider, a.Status, def, lastSync)
			}
			return w.Flush()
		},
	}
}

func newAccountSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default [account-id]",
		Short: "Make an account the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := newService(cfg, db, log)
			if err != nil {
				return err
			}

			if err := svc.SetDefault(cmd.Context(), userFlag, args[0]); err != nil {
				return fmt.Errorf("failed to set default account: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "set-default", AccountID: args[0]})
			}
			fmt.Printf("Default account: %s\n", args[0])
			return nil
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [account-id]",
		Short: "Remove an account and its synced data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := newService(cfg, db, log)
			if err != nil {
				return err
			}

			if err := svc.Delete(cmd.Context(), userFlag, args[0]); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "remove", AccountID: args[0]})
			}
			fmt.Printf("Account removed: %s\n", args[0])
			return nil
		},
	}
}
