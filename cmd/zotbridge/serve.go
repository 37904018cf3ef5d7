package main

import (
	"context"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/entrhq/zotbridge/pkg/config"
	"github.com/entrhq/zotbridge/pkg/logging"
	"github.com/entrhq/zotbridge/pkg/mcp"
	"github.com/entrhq/zotbridge/pkg/translation"
)

var (
	watchConfig            bool
	spawnTranslationServer string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over MCP on stdin/stdout",
	Long: `Serve runs a Model Context Protocol server on stdin/stdout. Stdout carries
protocol messages only; logs go to the log file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&watchConfig, "watch", false, "Reload the tool set when the config file changes")
	serveCmd.Flags().StringVar(&spawnTranslationServer, "spawn-translation-server", "",
		"Command that starts the translation server when it is not already listening")
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := logging.Component("serve")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if spawnTranslationServer != "" {
		proc, err := translation.EnsureServer(ctx, cfg.Translation.URL, translation.LaunchOptions{
			Command: spawnTranslationServer,
			Stderr:  os.Stderr,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := proc.Stop(); err != nil {
				log.Warnf("failed to stop translation server: %v", err)
			}
		}()
	}

	current, err := buildApp(cfg)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if err := current.Close(); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()

	server, err := mcp.NewServer(mcp.Options{Name: "zotbridge", Version: version}, current.registry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if watchConfig && configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
			if err := applyFlags(cmd, next); err != nil {
				log.Warnf("ignoring config change: %v", err)
				return
			}
			if err := logging.SetLevel(next.Logging.Level); err != nil {
				log.Warnf("ignoring log level: %v", err)
			}
			rebuilt, err := buildApp(next)
			if err != nil {
				log.Warnf("ignoring config change: %v", err)
				return
			}
			// SetTools returns once calls on the previous tools are done.
			if err := server.SetTools(rebuilt.registry); err != nil {
				log.Warnf("ignoring config change: %v", err)
				_ = rebuilt.Close()
				return
			}
			mu.Lock()
			previous := current
			current = rebuilt
			mu.Unlock()
			if err := previous.Close(); err != nil {
				log.Warnf("closing previous tool set: %v", err)
			}
		})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil {
				log.Errorf("config watcher stopped: %v", err)
			}
		}()
	} else if watchConfig {
		log.Warnf("--watch ignored: no config file")
	}

	log.Infof("serving %d tools (session %s, log %s)", len(current.registry.Names()), log.SessionID(), log.LogPath())
	err = server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	cancel()
	wg.Wait()
	return err
}
