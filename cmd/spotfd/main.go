// Command spotfd is a macOS file finder that queries the Spotlight
// metadata index (mdfind) and applies fd-like ignore/visibility semantics
// to the results.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"spotfd/internal/cache"
	"spotfd/internal/filter"
	"spotfd/internal/logging"
	"spotfd/internal/mdfind"
	"spotfd/internal/query"
	"spotfd/internal/render"
	"spotfd/internal/watch"
)

var flags struct {
	hidden    bool
	noIgnore  bool
	print0    bool
	watchMode bool
	verbose   bool
	cacheKind string
	cachePath string
	cacheDSN  string
}

func main() {
	root := &cobra.Command{
		Use:           "spotfd [pattern] [path]",
		Short:         "Spotlight-powered file finding with fd-like ignore semantics (macOS only)",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	root.Flags().BoolVarP(&flags.hidden, "hidden", "H", false, "include hidden files and directories")
	root.Flags().BoolVarP(&flags.noIgnore, "no-ignore", "I", false, "don't respect ignore files (does not imply --hidden)")
	root.Flags().BoolVarP(&flags.print0, "print0", "0", false, "print NUL after each result instead of newline")
	root.Flags().BoolVarP(&flags.watchMode, "watch", "w", false, "re-run on changes to the search path")
	root.Flags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging to stderr")
	root.Flags().StringVar(&flags.cacheKind, "cache", "", "persistent decision cache backend: sqlite, postgres, or empty to disable")
	root.Flags().StringVar(&flags.cachePath, "cache-path", "", "sqlite cache file path (default: $XDG_CACHE_HOME/spotfd/cache.db)")
	root.Flags().StringVar(&flags.cacheDSN, "cache-dsn", "", "postgres cache DSN (required when --cache postgres)")

	if err := root.Execute(); err != nil {
		handleFatal(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logging.SetVerbose(flags.verbose)
	log := logging.For("cli")

	var pattern string
	var pathArg string
	hasPathArg := false
	if len(args) > 0 {
		pattern = args[0]
	}
	if len(args) > 1 {
		pathArg = args[1]
		hasPathArg = true
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("read current directory: %w", err)
	}

	base, err := resolveSearchBase(cwd, pathArg, hasPathArg)
	if err != nil {
		return err
	}

	store, err := openCacheStore()
	if err != nil {
		log.WithError(err).Warn("persistent cache unavailable, continuing without it")
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	plan := query.Build(base, pattern)
	style := render.NewStyle(cwd, base, pathArg, hasPathArg)
	delim := render.DelimiterNewline
	if flags.print0 {
		delim = render.DelimiterNUL
	}

	cfg := filter.Config{
		Cwd:           cwd,
		SearchBase:    base,
		IncludeHidden: flags.hidden,
		IgnoreEnabled: !flags.noIgnore,
	}

	globals := filter.DiscoverGlobals()

	runOnce := func() error {
		f := filter.New(cfg, globals)
		seedFromCache(f, store, base)

		out := bufio.NewWriter(os.Stdout)
		err := mdfind.Run(plan, f, style, delim, out)
		saveToCache(f, store, base)
		return err
	}

	if !flags.watchMode {
		return runOnce()
	}

	return runWatchLoop(base, runOnce, log)
}

// runWatchLoop blocks until the process is killed (Ctrl-C), re-running
// runOnce every time the watcher fires. Setting up the watch is fatal on
// failure since the user explicitly asked for watch behavior; a failure
// of an individual re-run is logged and does not stop the loop.
func runWatchLoop(base string, runOnce func() error, log *logrus.Entry) error {
	trigger := make(chan struct{}, 1)

	w, err := watch.New(base, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("set up watch on %s: %w", base, err)
	}
	defer w.Close()

	log.Info("watching for changes, press Ctrl-C to stop")

	if err := runOnce(); err != nil && !isBrokenPipe(err) {
		fmt.Fprintln(os.Stderr, err)
	}

	for range trigger {
		if err := runOnce(); err != nil && !isBrokenPipe(err) {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return nil
}

func resolveSearchBase(cwd, pathArg string, hasPathArg bool) (string, error) {
	base := cwd
	if hasPathArg {
		if filepath.IsAbs(pathArg) {
			base = pathArg
		} else {
			base = filepath.Join(cwd, pathArg)
		}
	}

	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", base)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", base)
	}
	return base, nil
}

func openCacheStore() (cache.Store, error) {
	switch flags.cacheKind {
	case "":
		return nil, nil
	case "sqlite":
		path := flags.cachePath
		if path == "" {
			path = defaultSQLiteCachePath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return cache.OpenSQLite(path)
	case "postgres":
		if flags.cacheDSN == "" {
			return nil, errors.New("--cache postgres requires --cache-dsn")
		}
		return cache.OpenPostgres(flags.cacheDSN)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", flags.cacheKind)
	}
}

func defaultSQLiteCachePath() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "spotfd", "cache.db")
	}
	home := os.Getenv("HOME")
	return filepath.Join(home, ".cache", "spotfd", "cache.db")
}

// seedFromCache primes a fresh Filter's search-base decisions from the
// persistent store, when the store's signature and ignore-mtime still
// match the filesystem (spec.md's cache-transparency property).
func seedFromCache(f *filter.Filter, store cache.Store, base string) {
	if store == nil {
		return
	}
	ctx := context.Background()
	entry, ok, err := store.Get(ctx, base)
	if err != nil || !ok {
		return
	}

	sig, err := cache.HashDirEntries(base)
	if err != nil {
		return
	}
	mtime := newestIgnoreMTime(base)
	if !cache.Fresh(entry, sig, mtime) {
		return
	}

	f.SeedWalkable(base, entry.Walkable)
	if entry.RepoRoot != "" {
		f.SeedRepoRoot(base, entry.RepoRoot)
	}
}

func saveToCache(f *filter.Filter, store cache.Store, base string) {
	if store == nil {
		return
	}
	walkable, known := f.WalkableFor(base)
	if !known {
		return
	}
	root, _ := f.RepoRootFor(base)

	sig, err := cache.HashDirEntries(base)
	if err != nil {
		return
	}

	entry := cache.Entry{
		Dir:         base,
		Walkable:    walkable,
		RepoRoot:    root,
		Signature:   sig,
		IgnoreMTime: newestIgnoreMTime(base),
	}
	_ = store.Put(context.Background(), entry)
}

// newestIgnoreMTime returns the newest modification time among the
// ignore files consulted directly at base (.fdignore, .ignore,
// .gitignore), zero if none exist.
func newestIgnoreMTime(base string) time.Time {
	var newest time.Time
	for _, name := range []string{".fdignore", ".ignore", ".gitignore"} {
		info, err := os.Stat(filepath.Join(base, name))
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest
}

func handleFatal(err error) {
	if isBrokenPipe(err) {
		os.Exit(0)
	}
	if errors.Is(err, mdfind.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "spotfd requires macOS Spotlight")
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}
