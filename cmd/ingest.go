package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/council-ai/council/internal/council"
	"github.com/council-ai/council/internal/dossier"
	"github.com/council-ai/council/internal/logger"
	"github.com/council-ai/council/internal/memory"
	"github.com/council-ai/council/internal/privacy"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultChunkSize = 800

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest job packets into pending dossiers and career documents into memory",
	Long: `Ingest accepts files and folders.

A folder is treated as a job packet: its job description becomes a new
pending dossier, while the resume and cover letter are chunked into the
career memory. A plain file is chunked into the career memory directly.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ingest(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("chunk-size", defaultChunkSize, "maximum snippet size in characters")
}

func ingest(cmd *cobra.Command, args []string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	chunkSize, err := cmd.Flags().GetInt("chunk-size")
	if err != nil || chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	mem := openMemory(config, logger)
	if mem != nil {
		defer mem.Close()
	}

	store, err := newDossierStore(config, logger)
	if err != nil {
		logger.Fatal("opening the dossier store", zap.Error(err))
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			logger.Error("skipping unreadable path", zap.String("path", path), zap.Error(err))
			continue
		}

		if info.IsDir() {
			if err := ingestPacket(path, store, mem, chunkSize, logger); err != nil {
				logger.Error("ingesting packet", zap.String("folder", path), zap.Error(err))
			}
			continue
		}

		if err := ingestDocument(path, mem, chunkSize, logger); err != nil {
			logger.Error("ingesting document", zap.String("path", path), zap.Error(err))
		}
	}
}

// ingestPacket turns a job application folder into a pending dossier, and
// feeds the candidate's own documents into the career memory.
func ingestPacket(folder string, store *dossier.Store, mem *memory.Store, chunkSize int, logger *zap.Logger) error {
	packet, err := dossier.IdentifyPacket(folder)
	if err != nil {
		return err
	}

	if packet.JD == "" {
		return fmt.Errorf("no job description found in %s", folder)
	}

	raw, err := os.ReadFile(packet.JD)
	if err != nil {
		return fmt.Errorf("reading job description: %w", err)
	}

	d := &council.Dossier{
		ID:         jobIDFromFolder(folder),
		RawContent: privacy.Sanitize(string(raw)),
	}

	path, err := store.SaveNew(d)
	if err != nil {
		return fmt.Errorf("creating dossier: %w", err)
	}

	logger.Info("created pending dossier",
		zap.String("job_id", d.ID),
		zap.String("path", path),
	)

	for _, doc := range []string{packet.Resume, packet.CoverLetter} {
		if doc == "" {
			continue
		}
		if err := ingestDocument(doc, mem, chunkSize, logger); err != nil {
			logger.Warn("skipping packet document", zap.String("path", doc), zap.Error(err))
		}
	}

	return nil
}

func ingestDocument(path string, mem *memory.Store, chunkSize int, logger *zap.Logger) error {
	if mem == nil {
		return fmt.Errorf("career memory is not configured (set paths.memory)")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	n, err := mem.AddDocument(privacy.Sanitize(string(raw)), filepath.Base(path), chunkSize)
	if err != nil {
		return err
	}

	logger.Info("ingested document",
		zap.String("source", filepath.Base(path)),
		zap.Int("snippets", n),
	)

	return nil
}

func jobIDFromFolder(folder string) string {
	base := filepath.Base(filepath.Clean(folder))
	return strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
}
