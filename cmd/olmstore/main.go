// ABOUTME: Inspection and maintenance CLI for olmstore databases
// ABOUTME: Subcommands for entity counts, key listing, raw reads, and wiping data

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/olmstore"
	"github.com/2389/olmstore/config"
	"github.com/2389/olmstore/cryptostore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "stats":
		err = cmdStats(args)
	case "keys":
		err = cmdKeys(args)
	case "get":
		err = cmdGet(args)
	case "wipe":
		err = cmdWipe(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `olmstore - flat-KV crypto storage inspection

Usage:
  olmstore stats            Show entity counts
  olmstore keys [prefix]    List stored keys, optionally filtered
  olmstore get <key>        Print the raw value under one key
  olmstore wipe             Delete every crypto.* key

Configuration is read from the file named by OLMSTORE_CONFIG
(default: olmstore.yaml).
`)
}

func getConfigPath() string {
	if path := os.Getenv("OLMSTORE_CONFIG"); path != "" {
		return path
	}
	return "olmstore.yaml"
}

func openStore() (*cryptostore.FlatStore, func(), *config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(setupLogger(cfg.Logging))

	store, backend, err := olmstore.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, func() { backend.Close() }, cfg, nil
}

func cmdStats(_ []string) error {
	store, closeStore, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	ctx := context.Background()

	sessions, err := store.CountSessions(ctx)
	if err != nil {
		return err
	}
	groupSessions, err := store.CountGroupSessions(ctx)
	if err != nil {
		return err
	}
	needingBackup, err := store.CountSessionsNeedingBackup(ctx)
	if err != nil {
		return err
	}
	migration, err := store.GetMigrationState(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	cyan.Printf("olmstore (%s)\n", cfg.Backend.Engine)
	green.Print("  ▶ ")
	fmt.Printf("Olm sessions:            %d\n", sessions)
	green.Print("  ▶ ")
	fmt.Printf("Megolm group sessions:   %d\n", groupSessions)
	green.Print("  ▶ ")
	fmt.Printf("Sessions needing backup: %d\n", needingBackup)
	green.Print("  ▶ ")
	fmt.Printf("Migration state:         %d\n", migration)
	return nil
}

func cmdKeys(args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	backend, err := olmstore.OpenBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	keys, err := backend.ListKeys(context.Background())
	if err != nil {
		return err
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		fmt.Println(key)
	}
	return nil
}

func cmdGet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: olmstore get <key>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	backend, err := olmstore.OpenBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	value, found, err := backend.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key %q not found", args[0])
	}
	fmt.Println(value)
	return nil
}

func cmdWipe(_ []string) error {
	store, closeStore, _, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.DeleteAllData(context.Background()); err != nil {
		return err
	}
	color.Green("All crypto data deleted.\n")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
