package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/address"
	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/dedup"
	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/home"
	"github.com/PadsterH2012/extractor/internal/pipeline"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/types"
	"github.com/PadsterH2012/extractor/internal/vector"
)

var (
	extractGame     string
	extractEdition  string
	extractBook     string
	extractKind     string
	extractProvider string
	extractLayout   string
	extractEnhance  string
	extractOut      string
	extractDryRun   bool
	extractQuiet    bool
	extractSave     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf-file>",
	Short: "Extract one PDF locally, without the server",
	Long: `Extract runs the full pipeline against a local PDF: identification,
page extraction, enhancement, categorization, scoring, and persistence to
the configured stores. The artifact is printed when the run completes.

With --dry-run the stores are skipped entirely and the artifact is only
printed, which is useful for checking identification and quality before
committing a book to the library.

Examples:
  extractor extract phb.pdf
  extractor extract phb.pdf --game dnd --edition 5th --book phb
  extractor extract mystery.pdf --dry-run`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		override := types.Override{
			Game:    extractGame,
			Edition: extractEdition,
			Book:    extractBook,
			Kind:    types.ContentKind(extractKind),
		}
		if override.Kind != "" && !override.Kind.Valid() {
			return usageError{fmt.Errorf("unknown kind %q, expected source_material or novel", extractKind)}
		}
		artifact, err := runLocal(cmd.Context(), args[0], override)
		if err != nil {
			return err
		}
		if extractOut != "" {
			path, err := writeArtifact(artifact, extractOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote artifact to %s\n", path)
		}
		if extractSave {
			path, err := saveArtifact(artifact)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved artifact to %s\n", path)
		}
		return api.Output(artifact)
	},
	SilenceUsage: true,
}

// runLocal wires a one-shot pipeline from config and drives it for a single
// file. Stores are attached when reachable; --dry-run skips them.
func runLocal(ctx context.Context, path string, override types.Override) (*types.Artifact, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	logger := newLogger(cfg)
	if extractQuiet {
		logger = discardLogger()
	}

	services, cleanup, err := buildServices(ctx, mgr, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(blob)) > cfg.Server.UploadMaxBytes {
		return nil, types.Errorf(types.KindUploadTooLarge, "upload",
			"%s is %d bytes, limit %d", path, len(blob), cfg.Server.UploadMaxBytes)
	}
	digest := sha256.Sum256(blob)

	s := services.Sessions.Create()
	s.SetDocument(&types.Document{
		OriginName: filepath.Base(path),
		Bytes:      blob,
		Size:       int64(len(blob)),
		SHA256:     hex.EncodeToString(digest[:]),
		UploadedAt: time.Now().UTC(),
	}, override)

	s.SetOptions(session.RunOptions{
		Provider: extractProvider,
		Enhance:  extractEnhance,
		Layout:   extractLayout,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.BindCancel(cancel)

	if !extractQuiet {
		go printProgress(s)
	}
	return services.Orchestrator.Run(runCtx, s, cfg)
}

// buildServices assembles the same service set the server carries, for local
// runs. The cleanup closes the document store connection.
func buildServices(ctx context.Context, mgr *config.Manager, logger *slog.Logger) (*svcctx.Services, func(), error) {
	cfg := mgr.Get()

	var cat *catalog.Catalog
	if cfg.Extract.CatalogOverlay != "" {
		overlay, err := catalog.LoadOverlay(cfg.Extract.CatalogOverlay)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog overlay: %w", err)
		}
		cat = catalog.New(overlay)
	} else {
		cat = catalog.New()
	}

	registry := providers.NewRegistry(cat, logger)
	if err := registry.Reload(cfg.ProviderConfig()); err != nil {
		return nil, nil, err
	}

	orch := &pipeline.Orchestrator{
		Catalog:   cat,
		Providers: registry,
		Logger:    logger,
	}
	services := &svcctx.Services{
		ConfigManager: mgr,
		Catalog:       cat,
		Providers:     registry,
		Sessions:      session.NewRegistry(time.Hour, logger),
		Orchestrator:  orch,
		Logger:        logger,
	}
	cleanup := func() {}

	if extractDryRun {
		return services, cleanup, nil
	}

	vec := vector.NewClient(cfg.Stores.VectorURL)
	if err := vec.HealthCheck(ctx); err != nil {
		logger.Warn("vector store unreachable, skipping vector persistence", "error", err)
	} else {
		orch.Vector = vec
		services.Vector = vec
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	docs, err := docstore.Connect(connectCtx, cfg.Stores.DocumentURL)
	cancel()
	if err != nil {
		logger.Warn("document store unreachable, skipping document persistence", "error", err)
	} else {
		guard := dedup.New(docs, logger)
		orch.Docs = docs
		orch.Guard = guard
		services.Docs = docs
		services.Guard = guard
		cleanup = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			docs.Close(closeCtx)
		}
	}
	return services, cleanup, nil
}

// saveArtifact writes the artifact as JSON under the extractor home
// directory, keyed by the book's separate-layout collection name.
func saveArtifact(artifact *types.Artifact) (string, error) {
	dir, err := home.New("")
	if err != nil {
		return "", err
	}
	if err := dir.EnsureExists(); err != nil {
		return "", err
	}
	return writeArtifactFile(artifact, dir.ArtifactPath(artifactKey(artifact)))
}

// writeArtifact writes the artifact as JSON into an output directory.
func writeArtifact(artifact *types.Artifact, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	return writeArtifactFile(artifact, filepath.Join(outDir, artifactKey(artifact)+".json"))
}

func artifactKey(artifact *types.Artifact) string {
	return address.For(artifact.Verdict, address.LayoutSeparate).Collection
}

func writeArtifactFile(artifact *types.Artifact, path string) (string, error) {
	blob, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// printProgress echoes session events to stderr until the run ends.
func printProgress(s *session.Session) {
	events, cancel := s.Subscribe()
	defer cancel()
	for event := range events {
		fmt.Fprintf(os.Stderr, "%5.1f%%  %-22s %s\n", event.Percent, event.State, event.Message)
		if event.State.Terminal() {
			return
		}
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractGame, "game", "", "Override the detected game system")
	extractCmd.Flags().StringVar(&extractEdition, "edition", "", "Override the detected edition")
	extractCmd.Flags().StringVar(&extractBook, "book", "", "Override the detected book")
	extractCmd.Flags().StringVar(&extractKind, "kind", "", "Override the content kind (source_material or novel)")
	extractCmd.Flags().StringVar(&extractProvider, "provider", "", "Provider for this run (mock, cloud-a, cloud-b, local)")
	extractCmd.Flags().StringVar(&extractLayout, "layout", "", "Collection layout (separate, single_with_folder)")
	extractCmd.Flags().StringVar(&extractEnhance, "enhance", "", "Text enhancement mode (off, normal, aggressive)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "Directory to write the artifact JSON into")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "Run the pipeline without persisting to stores")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "Also save the artifact JSON under ~/.extractor/artifacts")
	extractCmd.Flags().BoolVar(&extractQuiet, "quiet", false, "Suppress progress output")
	rootCmd.AddCommand(extractCmd)
}
