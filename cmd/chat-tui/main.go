package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roomchat/chat-tui/internal/app"
	"github.com/roomchat/chat-tui/internal/client"
	"github.com/roomchat/chat-tui/internal/config"
	"github.com/roomchat/chat-tui/internal/i18n"
	"github.com/roomchat/chat-tui/internal/session"
)

var (
	cfgFile string
	envFile string
	flags   config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chat-tui",
	Short: "Terminal client for a single-room chat server",
	Long: `chat-tui joins a chat room over WebSocket, shows the room's recent
history and live traffic, and lets you switch the interface language
while connected.

Configuration is read from the config file, then .env and ROOMCHAT_*
environment variables, then the flags below.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultPath()+")")
	f.StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	f.StringVar(&flags.WSURL, "url", "", "WebSocket URL of the chat endpoint")
	f.StringVar(&flags.HTTPBase, "http-base", "", "base URL for history and catalogs (default: derived from --url)")
	f.StringVar(&flags.Name, "name", "", "display name to prefill")
	f.StringVar(&flags.Locale, "locale", "", "interface language, overrides the saved preference")
	f.StringVar(&flags.CatalogSource, "catalog", "", "catalog source: http, embedded or auto")
	f.BoolVar(&flags.Dev, "dev", false, "mark missing translation keys on screen")
	f.StringVar(&flags.LogLevel, "log-level", "", "log level: info or debug")
	f.StringVar(&flags.LogFile, "log-file", "", "log file, relative to the state dir; - disables logging")
	f.StringVar(&flags.StateDir, "state-dir", "", "directory for preferences and logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadOptional(config.DefaultPath())
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	override := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	override("url", &cfg.WSURL, flags.WSURL)
	override("http-base", &cfg.HTTPBase, flags.HTTPBase)
	override("name", &cfg.Name, flags.Name)
	override("locale", &cfg.Locale, flags.Locale)
	override("catalog", &cfg.CatalogSource, flags.CatalogSource)
	override("log-level", &cfg.LogLevel, flags.LogLevel)
	override("log-file", &cfg.LogFile, flags.LogFile)
	override("state-dir", &cfg.StateDir, flags.StateDir)
	if changed("dev") {
		cfg.Dev = flags.Dev
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return tea.LogToFile(path, "roomchat")
}

func catalogLoader(source string, hc *client.HTTPClient) i18n.Loader {
	switch source {
	case config.CatalogHTTP:
		return hc.CatalogLoader()
	case config.CatalogEmbedded:
		return i18n.Embedded()
	default:
		return i18n.FirstOf(hc.CatalogLoader(), i18n.Embedded())
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = i18n.DefaultStateDir()
	}
	logFile, err := setupLogging(cfg.LogPath(stateDir))
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	hc := client.NewHTTPClient(cfg.HTTPBaseURL())
	engine := i18n.New(catalogLoader(cfg.CatalogSource, hc),
		i18n.WithSupported(cfg.SupportedLocales...),
		i18n.WithDefault(cfg.DefaultLocale),
		i18n.WithPreferences(i18n.NewPreferenceStore(stateDir)),
		i18n.WithDevMode(cfg.Dev),
	)
	engine.OnChange(func(locale string) {
		log.Printf("i18n: locale is now %s", locale)
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Catalog)
	if cfg.Locale != "" {
		_, err = engine.SetLocale(ctx, cfg.Locale)
	} else {
		_, err = engine.Init(ctx, i18n.EnvLocale())
	}
	cancel()
	if err != nil {
		log.Printf("i18n: no catalog loaded: %v", err)
	}

	dialer := client.NewWSDialer(cfg.WSURL)
	dialer.WriteTimeout = cfg.Timeouts.Write
	dialer.PingInterval = cfg.Timeouts.PingInterval
	dialer.PongTimeout = cfg.Timeouts.PongTimeout

	mgr := session.New(session.Config{
		Dialer:         dialer,
		History:        hc,
		DialTimeout:    cfg.Timeouts.Dial,
		HistoryTimeout: cfg.Timeouts.History,
		Logger:         log.Default(),
		Debug:          cfg.Debug(),
	})
	defer mgr.Close()

	log.Printf("starting: ws=%s http=%s locale=%s", cfg.WSURL, hc.BaseURL(), engine.Locale())

	m := app.New(app.Config{
		Engine:          engine,
		Session:         mgr,
		Name:            cfg.Name,
		NotificationTTL: cfg.NotificationTTL,
		CatalogTimeout:  cfg.Timeouts.Catalog,
		HelpStyle:       "dark",
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
