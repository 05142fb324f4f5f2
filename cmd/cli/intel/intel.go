// Package intel runs campaign intelligence against a local database without the web server.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/envstruct"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/intelligence"
	"github.com/myrjola/chronicler/internal/logging"
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/sqlite"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"os"
	"time"
)

var Group = &cobra.Group{
	ID:    "intel",
	Title: "Campaign intelligence",
}

type config struct {
	SqliteURL    string        `env:"CHRONICLER_SQLITE_URL" envDefault:"./chronicler.sqlite"`
	ModelTimeout time.Duration `env:"CHRONICLER_MODEL_TIMEOUT" envDefault:"90s"`
}

func init() {
	for _, cmd := range []*cobra.Command{Analyze, Apply, Reset, Expand} {
		cmd.Flags().String("campaign", "", "campaign id")
		cmd.Flags().String("provider", "", "model provider, defaults to CHRONICLER_AI_PROVIDER")
	}
	_ = Analyze.MarkFlagRequired("campaign")
	_ = Apply.MarkFlagRequired("campaign")
	_ = Reset.MarkFlagRequired("campaign")
	Analyze.Flags().String("session", "", "session id")
	Apply.Flags().String("in", "-", "file with the suggestions to apply, - reads stdin")
	Expand.Flags().String("in", "-", "file with the quick notes, - reads stdin")
}

// openService wires the intelligence service the same way the web server does. The returned function
// closes the database.
func openService(ctx context.Context, logger *slog.Logger) (*intelligence.Service, func(), error) {
	var (
		cfg   config
		aiCfg ai.Config
	)
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return nil, nil, errors.Wrap(err, "populate config")
	}
	if err := envstruct.Populate(&aiCfg, os.LookupEnv); err != nil {
		return nil, nil, errors.Wrap(err, "populate model provider config")
	}
	database, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	closeDB := func() {
		if closeErr := database.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}
	providers, err := ai.NewProvidersFromConfig(ctx, aiCfg, logger)
	if err != nil {
		closeDB()
		return nil, nil, errors.Wrap(err, "configure model providers")
	}
	service, err := intelligence.New(database, providers, cfg.ModelTimeout, logger)
	if err != nil {
		closeDB()
		return nil, nil, errors.Wrap(err, "create intelligence service")
	}
	return service, closeDB, nil
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
}

// withService runs fn with a ready service and the campaign flag in the log context.
func withService(fn func(ctx context.Context, cmd *cobra.Command, service *intelligence.Service) error) func(
	*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		ctx := logging.WithAttrs(cmd.Context(), slog.String("campaign_id", campaignID))
		logger := newLogger(cmd.ErrOrStderr())
		service, closeDB, err := openService(ctx, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		return fn(ctx, cmd, service)
	}
}

func readInput(cmd *cobra.Command) ([]byte, error) {
	path, _ := cmd.Flags().GetString("in")
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrap(err, "read input", slog.String("path", path))
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(v), "encode output")
}

var Analyze = &cobra.Command{
	Use:     "analyze",
	GroupID: "intel",
	Short:   "Suggest character updates",
	Long: `Analyzes the sessions changed since the last intelligence run and prints the suggestions as JSON.
The output can be edited and fed to the apply command.`,
	Args: cobra.NoArgs,
	RunE: withService(func(ctx context.Context, cmd *cobra.Command, service *intelligence.Service) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		provider, _ := cmd.Flags().GetString("provider")
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID != "" {
			session, err := service.Session(ctx, sessionID)
			if err != nil {
				return err
			}
			if session.CampaignID != campaignID {
				return errors.Wrap(repositories.ErrNotFound, "session belongs to another campaign",
					slog.String("session_id", sessionID), slog.String("campaign_id", campaignID))
			}
			analysis, err := service.AnalyzeSession(ctx, sessionID, provider, false)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analysis.AnalyzeResult)
		}
		result, err := service.Analyze(ctx, campaignID, provider)
		if err != nil {
			return err
		}
		if result.NoNewContent {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No new content since last analysis")
		}
		return printJSON(cmd.OutOrStdout(), result)
	}),
}

var Apply = &cobra.Command{
	Use:     "apply",
	GroupID: "intel",
	Short:   "Apply reviewed suggestions",
	Long:    `Applies the suggestions printed by analyze. Accepts either the analyze output or a bare JSON array.`,
	Args:    cobra.NoArgs,
	RunE: withService(func(ctx context.Context, cmd *cobra.Command, service *intelligence.Service) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		data, err := readInput(cmd)
		if err != nil {
			return err
		}
		var items []json.RawMessage
		if err = json.Unmarshal(data, &items); err != nil {
			var wrapped struct {
				Suggestions []json.RawMessage `json:"suggestions"`
			}
			if wrappedErr := json.Unmarshal(data, &wrapped); wrappedErr != nil {
				return errors.Wrap(errors.Join(err, wrappedErr), "decode suggestions")
			}
			items = wrapped.Suggestions
		}
		result, err := service.Apply(ctx, campaignID, items)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}),
}

var Reset = &cobra.Command{
	Use:     "reset",
	GroupID: "intel",
	Short:   "Forget the last intelligence run",
	Long:    `Clears the watermark so that the next analysis covers every session of the campaign.`,
	Args:    cobra.NoArgs,
	RunE: withService(func(ctx context.Context, cmd *cobra.Command, service *intelligence.Service) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		if err := service.Reset(ctx, campaignID); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Intelligence run reset")
		return nil
	}),
}

var Expand = &cobra.Command{
	Use:     "expand",
	GroupID: "intel",
	Short:   "Expand quick notes into a session write-up",
	Long:    `Streams the write-up to stdout section by section. --campaign adds the campaign characters as context.`,
	Args:    cobra.NoArgs,
	RunE: withService(func(ctx context.Context, cmd *cobra.Command, service *intelligence.Service) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		provider, _ := cmd.Flags().GetString("provider")
		data, err := readInput(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var section notes.Section
		_, err = service.ExpandNotes(ctx, intelligence.ExpandNotesRequest{
			CampaignID: campaignID,
			Notes:      string(data),
			Provider:   provider,
		}, func(delta notes.SectionDelta) error {
			if delta.Section != section {
				section = delta.Section
				if _, writeErr := fmt.Fprintf(out, "\n== %s ==\n", section); writeErr != nil {
					return errors.Wrap(writeErr, "write section header")
				}
			}
			_, writeErr := io.WriteString(out, delta.Text)
			return errors.Wrap(writeErr, "write section text")
		})
		return err
	}),
}
