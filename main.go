// Parley is a terminal client for the chat backend: direct conversations with
// live updates, unread counts and notifications, plus the bulletin board.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/saravenpi/parley/internal/backend"
	"github.com/saravenpi/parley/internal/cache"
	"github.com/saravenpi/parley/internal/config"
	"github.com/saravenpi/parley/internal/logging"
	"github.com/saravenpi/parley/internal/realtime"
	"github.com/saravenpi/parley/internal/ui"
)

const version = "1.0.0"

// Flag variables.
var (
	configPath, serverURL, wsURL, logFile, cachePath string
	logLevel                                         int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal chat client with live conversations and a bulletin board",
	Long: `Parley - Terminal Chat Client

Navigation:
  ↑/↓ or j/k        Navigate lists
  Enter             Select/Open item
  ESC               Go back
  q                 Quit from current view
  ctrl+c            Force quit

Chat rooms:
  n                 Start a new conversation
  a                 Mark the selected room read
  x                 Leave the selected room
  c                 Clear notifications
  r                 Refresh the room list

Conversation:
  n or c            Compose a message
  ctrl+s            Send message (while composing)
  f                 Send a file
  r                 Reload history

Bulletin board:
  n                 Write a post
  m                 Toggle my posts / all posts
  i                 Message the author (post view)
  e / d             Edit / delete your post (post view)

Configuration is read from ~/.parley/config.yml; flags override it.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		tail, logCloser, err := logging.Init(cfg.LogLevel, cfg.LogFile, cfg.LogTailBytes)
		if err != nil {
			return err
		}
		defer logCloser.Close()

		app, closeApp, err := newApp(cfg, tail)
		if err != nil {
			return err
		}
		defer closeApp()

		p := tea.NewProgram(ui.NewRootModel(app), tea.WithAltScreen(), tea.WithReportFocus())
		if _, err := p.Run(); err != nil {
			return errors.Wrap(err, "terminal UI failed")
		}
		jww.INFO.Printf("Parley exited")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Parley v%s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the effective configuration to the config file and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("Saved configuration to %s\n\n", configPath)
		fmt.Printf("server_url:    %s\nwebsocket_url: %s\nlog_file:      %s\nlog_level:     %d\ncache_path:    %s\n",
			cfg.ServerURL, cfg.WebSocketURL, cfg.LogFile, cfg.LogLevel, cfg.CachePath)
		return nil
	},
}

// init is the initialization function for Cobra which defines flags.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultPath(),
		"Path of the YAML configuration file.")
	flags.StringVarP(&serverURL, "server", "s", "",
		"Backend base URL, e.g. http://localhost:8080.")
	flags.StringVar(&wsURL, "ws", "",
		"Realtime WebSocket URL, e.g. ws://localhost:8080/ws-chat/websocket.")
	flags.StringVarP(&logFile, "log", "l", "",
		"Log output path. \"-\" logs to stderr; empty in the config file "+
			"disables the log file.")
	flags.IntVarP(&logLevel, "logLevel", "v", 2,
		"Verbosity level of logging. 0 = TRACE, 1 = DEBUG, 2 = INFO, "+
			"3 = WARN, 4 = ERROR, 5 = CRITICAL, 6 = FATAL")
	flags.StringVar(&cachePath, "cache", "",
		"Path of the local history cache database.")

	rootCmd.AddCommand(versionCmd, configCmd)
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = serverURL
	}
	if flags.Changed("ws") {
		cfg.WebSocketURL = wsURL
	}
	if flags.Changed("log") {
		cfg.LogFile = logFile
	}
	if flags.Changed("logLevel") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("cache") {
		cfg.CachePath = cachePath
	}

	return cfg, errors.Wrap(cfg.Validate(), "invalid configuration")
}

// newApp builds the backend client, realtime dialer and cache shared by
// every screen.
func newApp(cfg config.Config, tail *logging.Tail) (*ui.App, func(), error) {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	client, err := backend.New(cfg.ServerURL, timeout)
	if err != nil {
		return nil, nil, err
	}

	app := &ui.App{
		Backend: client,
		Dialer: &realtime.StompDialer{
			URL:       cfg.WebSocketURL,
			Header:    client.SessionHeader,
			HeartBeat: time.Duration(cfg.HeartbeatSeconds) * time.Second,
		},
		Logs:    tail,
		Timeout: timeout,
	}

	closeApp := func() {}
	if cfg.CachePath != "" {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			// The cache only speeds things up; run without it.
			jww.WARN.Printf("History cache disabled: %+v", err)
		} else {
			app.Cache = c
			closeApp = func() {
				if err := c.Close(); err != nil {
					jww.WARN.Printf("Failed to close history cache: %+v", err)
				}
			}
		}
	}

	jww.INFO.Printf("Parley v%s using backend %s and broker %s", version, cfg.ServerURL, cfg.WebSocketURL)
	return app, closeApp, nil
}
