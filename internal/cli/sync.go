package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailbridge/mailbridge/internal/sync"
)

func newFoldersCmd() *cobra.Command {
	var (
		accountFlag string
		enabledOnly bool
	)

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List an account's folder mappings",
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

			accountID, err := resolveAccountID(cmd, svc, accountFlag)
			if err != nil {
				return err
			}

			mappings, err := svc.FolderMappings(cmd.Context(), userFlag, accountID, enabledOnly)
			if err != nil {
				return fmt.Errorf("failed to list folders: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONMappings(mappings))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tENABLED\tBIDI\tUNREAD\tTOTAL")
			for _, m := range mappings {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%d\t%d\n",
					m.ID, m.DisplayName, m.Category, m.Enabled,
					m.BidirectionalSync, m.UnreadCount, m.TotalCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to the default account)")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only folders enabled for sync")
	cmd.AddCommand(newFoldersSyncCmd())
	return cmd
}

func newFoldersSyncCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the folder catalog from the provider",
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

			accountID, err := resolveAccountID(cmd, svc, accountFlag)
			if err != nil {
				return err
			}

			if err := svc.SyncCatalog(cmd.Context(), userFlag, accountID); err != nil {
				return fmt.Errorf("failed to sync folder catalog: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "folders-sync", AccountID: accountID})
			}
			fmt.Println("Folder catalog synced.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to the default account)")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var (
		accountFlag string
		folderIDs   []string
		limit       int
		mappedOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync messages from the provider",
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

			accountID, err := resolveAccountID(cmd, svc, accountFlag)
			if err != nil {
				return err
			}

			if limit == 0 {
				limit = cfg.Sync.MessageLimit
			}

			if !jsonFlag {
				fmt.Printf("Syncing account %s...\n", accountID)
			}
			result, err := svc.SyncMessages(cmd.Context(), userFlag, accountID, sync.Options{
				FolderIDs:      folderIDs,
				Limit:          limit,
				SyncOnlyMapped: mappedOnly,
			})
			if err != nil {
				return fmt.Errorf("failed to sync: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONSyncResult(result))
			}

			fmt.Printf("Synced %d emails across %d folders.\n", result.EmailsSynced, result.FoldersSynced)
			if len(result.Errors) > 0 {
				fmt.Printf("Completed with errors:\n  %s\n", strings.Join(result.Errors, "\n  "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to the default account)")
	cmd.Flags().StringSliceVar(&folderIDs, "folder", nil, "remote folder IDs to sync (default: all enabled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages per folder (defaults to config)")
	cmd.Flags().BoolVar(&mappedOnly, "mapped-only", false, "record the run as an initial sync of the mapped folder set")
	cmd.AddCommand(newSyncRunsCmd())
	return cmd
}

func newSyncRunsCmd() *cobra.Command {
	var (
		accountFlag string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent sync runs",
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

			accountID, err := resolveAccountID(cmd, svc, accountFlag)
			if err != nil {
				return err
			}

			runs, err := svc.SyncRuns(cmd.Context(), userFlag, accountID, limit)
			if err != nil {
				return fmt.Errorf("failed to list sync runs: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONSyncRuns(runs))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tFOLDERS\tEMAILS\tERRORS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.StartedAt.Format(time.DateTime), r.Kind, r.Status,
					r.FoldersSynced, r.EmailsSynced, len(r.Errors))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to the default account)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}
