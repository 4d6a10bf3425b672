package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"studyhelper/internal/api"
	"studyhelper/internal/apperr"
	"studyhelper/internal/logger"
	"studyhelper/internal/mcpserver"
	"studyhelper/internal/models"
	"studyhelper/internal/service/study"
	"studyhelper/internal/studio"
	"studyhelper/internal/tui"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.newStudio(ctx)
			if err != nil {
				return err
			}

			if strings.HasPrefix(strings.ToLower(a.cfg.BasicConfig.LogMode), "prod") {
				gin.SetMode(gin.ReleaseMode)
			}
			router := gin.New()
			router.Use(gin.Recovery(), api.RequestLogger(a.logger))
			timeout := time.Duration(a.cfg.BasicConfig.GenerateTimeoutSeconds) * time.Second
			api.NewHandler(s, a.logger, timeout).RegisterRoutes(router)

			if addr == "" {
				addr = a.cfg.BasicConfig.ServerAddress
			}
			a.logger.Info("server listening", "addr", addr, "generation_enabled", s.GenerationEnabled())
			return runServer(ctx, &http.Server{Addr: addr, Handler: router}, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides basic_config.server_address)")
	return cmd
}

// runServer serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func tuiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [file.pdf]",
		Short: "Run the terminal interface",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: *configPath, quiet: true})
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.newStudio(ctx)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			_, err = tea.NewProgram(tui.New(s, path), tea.WithAltScreen()).Run()
			return err
		},
	}
}

func generateCmd(configPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate <file.pdf>",
		Short: "Generate and save study materials for one PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			if a.generator == nil {
				return fmt.Errorf("%s: %w", a.warning, apperr.ErrGenerationDisabled)
			}

			progress := cmd.ErrOrStderr()
			fmt.Fprintln(progress, study.StageExtracting)
			path := args[0]
			text, err := a.extractor.ExtractFile(ctx, path)
			if err != nil {
				return err
			}
			session, err := a.generator.Run(ctx, filepath.Base(path), text, func(stage study.Stage) {
				fmt.Fprintln(progress, stage)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(progress, studio.NoticeSaved)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), session)
			}
			printSession(cmd.OutOrStdout(), session)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the saved session as JSON")
	return cmd
}

func historyCmd(configPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved study sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			sessions, err := a.store.ListAll(ctx)
			if err != nil {
				return err
			}
			entries := studio.HistoryEntries(sessions)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No past sessions yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "#%d %s\n  %s\n", e.ID, e.Filename, e.Preview)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")
	return cmd
}

func mcpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve saved study sessions to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()
			return mcpserver.Serve(mcpserver.New(a.store, version, a.logger))
		},
	}
}

func printSession(w io.Writer, s *models.StudySession) {
	fmt.Fprintf(w, "# %s (session %d)\n\n", s.Filename, s.ID)
	fmt.Fprintf(w, "## Summary\n\n%s\n\n", s.Summary)
	fmt.Fprintf(w, "## Flashcards\n\n%s\n\n", s.Flashcards)
	fmt.Fprintf(w, "## Quiz\n\n%s\n", s.Quiz)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
