package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mailbridge/mailbridge/internal/app"
	"github.com/mailbridge/mailbridge/internal/config"
	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/provider/gmail"
	"github.com/mailbridge/mailbridge/internal/provider/imap"
	"github.com/mailbridge/mailbridge/internal/provider/nylas"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/store/sqlite"
	"github.com/mailbridge/mailbridge/internal/sync"
)

// nylasKeySecret is the keyring entry holding the Nylas API key when it
// is not in the config file or environment.
const nylasKeySecret = "nylas-api-key"

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool

	// userFlag scopes every command to one user's accounts.
	userFlag string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mailbridge",
		Short:   "Mailbox synchronization service",
		Long:    "Synchronizes remote mailboxes into a local store and serves them over an HTTP API.",
		Version: version,
	}
	root.SetVersionTemplate(fmt.Sprintf("mailbridge %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&userFlag, "user", "local", "user whose accounts the command operates on")
	root.AddCommand(newServeCmd())
	root.AddCommand(newAccountCmd())
	root.AddCommand(newFoldersCmd())
	root.AddCommand(newSyncCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDB creates the data directory and opens the SQLite database.
func openDB(cfg *config.Config) (*sqlite.DB, error) {
	path := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newLogger builds the process logger from the log config.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// newNylasClient returns a client when an API key is available from the
// config, the environment, or the OS keyring. Nil means Nylas-backed
// providers are not configured.
func newNylasClient(cfg *config.Config) *nylas.Client {
	apiKey := cfg.Nylas.APIKey
	if apiKey == "" {
		apiKey, _ = store.NewKeyringSecretStore().LoadSecret(nylasKeySecret)
	}
	if apiKey == "" {
		return nil
	}
	return nylas.New(nylas.Config{APIKey: apiKey, BaseURL: cfg.Nylas.APIURI})
}

// buildClients assembles the provider registry. Gmail OAuth credentials
// take precedence over Nylas for Google accounts so that direct API
// access is used when the user configured their own OAuth client.
func buildClients(cfg *config.Config, log *logrus.Logger) provider.Registry {
	clients := provider.Registry{}
	if nc := newNylasClient(cfg); nc != nil {
		clients[domain.ProviderGoogle] = nc
		clients[domain.ProviderMicrosoft] = nc
	}
	if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" {
		clients[domain.ProviderGoogle] = gmail.New(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, store.NewKeyringSecretStore())
	}
	clients[domain.ProviderIMAP] = imap.New(log)
	return clients
}

// newService wires the full application service from config.
func newService(cfg *config.Config, db *sqlite.DB, log *logrus.Logger) (*app.Service, error) {
	callTimeout, err := time.ParseDuration(cfg.Sync.CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sync call timeout: %w", err)
	}

	clients := buildClients(cfg, log)
	return app.NewService(db, clients,
		sync.NewCataloger(db, clients, log),
		sync.NewEngine(db, clients, log, callTimeout),
		sync.NewPropagator(db, clients, log),
		log,
	), nil
}

// resolveAccountID returns the requested account, the user's default, or
// the only account when exactly one exists.
func resolveAccountID(cmd *cobra.Command, svc *app.Service, accountFlag string) (string, error) {
	if accountFlag != "" {
		return accountFlag, nil
	}

	accounts, err := svc.Store().ListAccounts(cmd.Context(), userFlag)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("no accounts connected; run 'mailbridge account connect' first")
	}
	for _, a := range accounts {
		if a.IsDefault {
			return a.ID, nil
		}
	}
	return accounts[0].ID, nil
}
