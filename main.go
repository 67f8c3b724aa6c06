package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "db2topg",
	Short: "DB2 to PostgreSQL schema conversion tool",
}

var (
	convertOutDir   string
	convertEncoding string

	unloadOutDir     string
	unloadScriptOnly bool
	unloadWorkers    int
	unloadDatabase   string

	loadManifest string
	loadDataDir  string
	loadDSN      string
	loadOnError  string
)

var convertCmd = &cobra.Command{
	Use:   "convert <dump.sql>",
	Short: "convert a db2look DDL dump into PostgreSQL scripts",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var unloadCmd = &cobra.Command{
	Use:   "unload <dump.sql>",
	Short: "export every table found in the dump with parallel db2 sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnloadCmd,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "bulk-load exported DEL files into PostgreSQL",
	Args:  cobra.NoArgs,
	RunE:  runLoadCmd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	convertCmd.Flags().StringVar(&convertOutDir, "out", "", "output directory (default from config, \"toPG\")")
	convertCmd.Flags().StringVar(&convertEncoding, "encoding", "", "input encoding (utf8, latin1, windows-1252, utf16le, ...)")

	unloadCmd.Flags().StringVar(&unloadOutDir, "out", "", "directory for exported DEL files")
	unloadCmd.Flags().BoolVar(&unloadScriptOnly, "script-only", false, "write an unload.sh script instead of running db2")
	unloadCmd.Flags().IntVar(&unloadWorkers, "workers", 0, "parallel export sessions")
	unloadCmd.Flags().StringVar(&unloadDatabase, "database", "", "DB2 database name to connect to")

	loadCmd.Flags().StringVar(&loadManifest, "manifest", "", "column manifest path (default <out>/columns.manifest)")
	loadCmd.Flags().StringVar(&loadDataDir, "dir", "", "directory holding the DEL files (default <out>)")
	loadCmd.Flags().StringVar(&loadDSN, "dsn", "", "PostgreSQL connection string")
	loadCmd.Flags().StringVar(&loadOnError, "on-error", "", "per-table failure handling: stop or continue")

	rootCmd.AddCommand(convertCmd, unloadCmd, loadCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildCatalog parses an entire dump file into a catalog.
func buildCatalog(path, encoding string, overrides map[string]string) (*Catalog, *Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	dec, err := decodeReader(bufio.NewReader(f), encoding)
	if err != nil {
		return nil, nil, err
	}

	catalog := NewCatalog()
	parser := NewParser(catalog, overrides)
	reader := NewStatementReader(dec)
	n := 0
	for {
		stmt, err := reader.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("read dump: %w", err)
		}
		if stmt == nil {
			break
		}
		n++
		if err := parser.ParseStatement(stmt); err != nil {
			return nil, nil, fmt.Errorf("statement %d: %w", n, err)
		}
	}
	log.Printf("parsed %d statements", n)
	return catalog, parser, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if convertOutDir != "" {
		cfg.OutDir = convertOutDir
	}
	if convertEncoding != "" {
		cfg.Encoding = convertEncoding
	}

	start := time.Now()
	log.Printf("db2topg %s", versionString())
	log.Printf("reading %s (encoding=%s)...", args[0], cfg.Encoding)

	catalog, parser, err := buildCatalog(args[0], cfg.Encoding, cfg.TypeMapping.Overrides)
	if err != nil {
		return err
	}
	tables, views := 0, len(catalog.Views)
	for _, s := range catalog.Schemas {
		tables += len(s.Tables)
	}
	log.Printf("found %d schemas, %d tables, %d views", len(catalog.Schemas), tables, views)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	outputs := make(map[string]*scriptFile, 4)
	for _, name := range []string{"before.sql", "after.sql", "unsure.sql", "columns.manifest"} {
		sf, err := createScript(filepath.Join(cfg.OutDir, name))
		if err != nil {
			return err
		}
		outputs[name] = sf
	}

	renamer := NewRenamer(catalog)
	emitter := NewEmitter(catalog, renamer)
	if err := emitter.Emit(outputs["before.sql"].w, outputs["after.sql"].w, outputs["unsure.sql"].w); err != nil {
		return err
	}
	if err := writeManifest(outputs["columns.manifest"].w, catalog); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	for _, name := range []string{"before.sql", "after.sql", "unsure.sql", "columns.manifest"} {
		if err := outputs[name].close(); err != nil {
			return err
		}
	}

	for _, w := range parser.Warnings {
		log.Printf("  WARN: %s", w)
	}
	for _, w := range emitter.Warnings {
		log.Printf("  WARN: %s", w)
	}
	for _, w := range renamer.Renames {
		log.Printf("  WARN: %s", w)
	}

	log.Printf("wrote %s, %s, %s and %s",
		filepath.Join(cfg.OutDir, "before.sql"),
		filepath.Join(cfg.OutDir, "after.sql"),
		filepath.Join(cfg.OutDir, "unsure.sql"),
		filepath.Join(cfg.OutDir, "columns.manifest"))
	log.Printf("conversion completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// scriptFile pairs a file with its buffered writer so both can be
// finalized together.
type scriptFile struct {
	f *os.File
	w *bufio.Writer
}

func createScript(path string) (*scriptFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &scriptFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *scriptFile) close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush %s: %w", s.f.Name(), err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.f.Name(), err)
	}
	return nil
}

func runUnloadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if unloadWorkers > 0 {
		cfg.Unload.Workers = unloadWorkers
	}
	if unloadDatabase != "" {
		cfg.Unload.Database = unloadDatabase
	}
	if cfg.Unload.Database == "" {
		return fmt.Errorf("a DB2 database name is required (--database or unload.database)")
	}
	outDir := cfg.OutDir
	if unloadOutDir != "" {
		outDir = unloadOutDir
	}

	catalog, _, err := buildCatalog(args[0], cfg.Encoding, cfg.TypeMapping.Overrides)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	jobs := buildExportJobs(catalog, outDir, cfg.Unload)
	log.Printf("unloading %d tables", len(jobs))

	if unloadScriptOnly {
		path := filepath.Join(outDir, "unload.sh")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := writeUnloadScript(f, jobs, cfg.Unload); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
		return nil
	}

	failed := runExportJobs(context.Background(), jobs, cfg.Unload)
	log.Printf("unload finished: %d ok, %d failed", len(jobs)-failed, failed)
	return nil
}

func runLoadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if loadDSN != "" {
		cfg.Load.DSN = loadDSN
	}
	if cfg.Load.DSN == "" {
		return fmt.Errorf("a PostgreSQL connection string is required (--dsn or load.dsn)")
	}
	if loadOnError != "" {
		switch loadOnError {
		case "stop", "continue":
			cfg.Load.OnError = loadOnError
		default:
			return fmt.Errorf("--on-error must be one of: stop, continue")
		}
	}

	manifest := loadManifest
	if manifest == "" {
		manifest = filepath.Join(cfg.OutDir, "columns.manifest")
	} else {
		manifest = cfg.resolvePath(manifest)
	}
	dataDir := loadDataDir
	if dataDir == "" {
		dataDir = cfg.OutDir
	}

	start := time.Now()
	log.Printf("loading DEL exports from %s...", dataDir)
	if err := runLoad(context.Background(), cfg, manifest, dataDir); err != nil {
		return err
	}
	log.Printf("load completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
