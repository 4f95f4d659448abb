package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crystal-mush/godaad/pkg/archive"
	"github.com/crystal-mush/godaad/pkg/boltstore"
	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/engine"
	"github.com/crystal-mush/godaad/pkg/platform"
	"github.com/crystal-mush/godaad/pkg/server"
	"github.com/crystal-mush/godaad/pkg/transcript"
	"github.com/crystal-mush/godaad/pkg/validate"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	gamePath := flag.String("game", envDefault("DAAD_GAME", ""), "Path to the DDB file (env: DAAD_GAME)")
	confFile := flag.String("conf", envDefault("DAAD_CONF", ""), "Path to server config file; enables server mode (env: DAAD_CONF)")
	listen := flag.String("listen", envDefault("DAAD_LISTEN", ""), "TCP address to serve on, overrides config (env: DAAD_LISTEN)")
	webListen := flag.String("web", envDefault("DAAD_WEB", ""), "HTTP/WebSocket address, overrides config (env: DAAD_WEB)")
	saveDB := flag.String("saves", envDefault("DAAD_SAVES", ""), "Path to bbolt save slot database (env: DAAD_SAVES)")
	transcriptDB := flag.String("transcripts", envDefault("DAAD_TRANSCRIPTS", ""), "Path to SQLite transcript database (env: DAAD_TRANSCRIPTS)")
	watch := flag.Bool("watch", os.Getenv("DAAD_WATCH") == "true", "Reload the DDB when it changes, server mode only (env: DAAD_WATCH)")
	name := flag.String("name", envDefault("DAAD_NAME", ""), "Game name used for saves (env: DAAD_NAME)")
	check := flag.Bool("validate", false, "Validate the DDB before playing and refuse it on errors")
	archiveDir := flag.String("archive-dir", envDefault("DAAD_ARCHIVE_DIR", ""), "Archive directory, overrides config (env: DAAD_ARCHIVE_DIR)")
	archiveNow := flag.Bool("archive", false, "Write an archive of the game, saves and transcripts, then exit")
	restorePath := flag.String("restore", envDefault("DAAD_RESTORE", ""), "Restore from archive before boot (env: DAAD_RESTORE)")
	hashPass := flag.String("hash-password", "", "Print a bcrypt hash and a JWT secret for the operator API config, then exit")
	flag.Parse()

	if *hashPass != "" {
		hash, err := server.HashPassword(*hashPass)
		if err != nil {
			log.Fatalf("Error hashing password: %v", err)
		}
		fmt.Printf("admin_password_hash: %q\njwt_secret: %q\n", hash, server.GenerateJWTSecret())
		return
	}

	serverMode := *confFile != "" || *listen != "" || *webListen != ""

	conf := server.DefaultConf()
	if *confFile != "" {
		c, err := server.LoadConf(*confFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		conf = c
	}
	if *gamePath != "" {
		conf.Game = *gamePath
	}
	if *name != "" {
		conf.Name = *name
	}
	if *listen != "" {
		conf.Listen = *listen
	}
	if *webListen != "" {
		conf.WebListen = *webListen
		if *listen == "" && *confFile == "" {
			conf.Listen = ""
		}
	}
	if *saveDB != "" {
		conf.SaveDB = *saveDB
	}
	if *transcriptDB != "" {
		conf.TranscriptDB = *transcriptDB
	}
	if *watch {
		conf.Watch = true
	}
	if *archiveDir != "" {
		conf.ArchiveDir = *archiveDir
	}

	if conf.Game == "" {
		fmt.Fprintln(os.Stderr, "Usage: daad -game <file.ddb> [-saves <boltfile>]")
		fmt.Fprintln(os.Stderr, "       daad -conf <config.yaml>")
		fmt.Fprintln(os.Stderr, "       daad -game <file.ddb> -listen :6250 [-web :8080] [-watch]")
		fmt.Fprintln(os.Stderr, "       daad -conf <config.yaml> -archive")
		fmt.Fprintln(os.Stderr, "       daad -conf <config.yaml> -restore <archive.tar.gz>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Environment variables (used as defaults when flags are not set):")
		fmt.Fprintln(os.Stderr, "  DAAD_GAME        Path to the DDB file")
		fmt.Fprintln(os.Stderr, "  DAAD_CONF        Path to server config file (.yaml)")
		fmt.Fprintln(os.Stderr, "  DAAD_LISTEN      TCP address to serve on")
		fmt.Fprintln(os.Stderr, "  DAAD_WEB         HTTP/WebSocket address")
		fmt.Fprintln(os.Stderr, "  DAAD_SAVES       Path to bbolt save slot database")
		fmt.Fprintln(os.Stderr, "  DAAD_TRANSCRIPTS Path to SQLite transcript database")
		fmt.Fprintln(os.Stderr, "  DAAD_WATCH       Set to 'true' to reload the DDB when it changes")
		fmt.Fprintln(os.Stderr, "  DAAD_NAME        Game name used for saves")
		fmt.Fprintln(os.Stderr, "  DAAD_ARCHIVE_DIR Archive directory")
		fmt.Fprintln(os.Stderr, "  DAAD_RESTORE     Restore from this archive before boot")
		os.Exit(1)
	}

	if *restorePath != "" {
		result, err := archive.Restore(archive.RestoreParams{
			ArchivePath:    *restorePath,
			GameDest:       conf.Game,
			SaveDest:       conf.SaveDB,
			TranscriptDest: conf.TranscriptDB,
			ConfDest:       conf.Path(),
		})
		if err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		for _, w := range result.Warnings {
			log.Printf("Restore: WARNING: %s", w)
		}
		log.Printf("Restored %d files from %s (%s)", result.FilesRestored, *restorePath, result.Manifest.Timestamp)
	}

	db, err := ddb.Load(conf.Game)
	if err != nil {
		if errors.Is(err, ddb.ErrBadFormat) {
			log.Fatalf("%s is not a DAAD database: %v", conf.Game, err)
		}
		log.Fatalf("Error loading database: %v", err)
	}
	log.Printf("Loaded %s: %s, %s, %d bytes", conf.Game, db.Header.Machine, db.Header.Language, db.Buffer().Len())

	if *check || serverMode {
		v := validate.New(db)
		v.Run()
		for _, f := range v.Findings() {
			if f.Severity == validate.SevError {
				log.Printf("validate: %s %s[%d]: %s", f.ID, f.List, f.Entry, f.Description)
			}
		}
		if n := v.Errors(); n > 0 {
			log.Fatalf("%s has %d validation errors", conf.Game, n)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *boltstore.Store
	if conf.SaveDB != "" {
		store, err = boltstore.Open(conf.SaveDB)
		if err != nil {
			log.Fatalf("Error opening save database: %v", err)
		}
		defer store.Close()
	}

	if !serverMode && !*archiveNow {
		code := runConsole(ctx, conf, db, store)
		if store != nil {
			store.Close()
		}
		stop()
		os.Exit(code)
	}

	opts := server.Options{AdminPassword: os.Getenv("DAAD_ADMIN_PASS")}
	if store != nil {
		opts.Store = store
	}
	if conf.TranscriptDB != "" {
		ts, err := transcript.Open(conf.TranscriptDB, time.Duration(conf.TranscriptTimeout)*time.Second)
		if err != nil {
			log.Fatalf("Error opening transcript database: %v", err)
		}
		defer ts.Close()
		opts.Transcript = ts
	}

	srv, err := server.New(conf, db, opts)
	if err != nil {
		log.Fatalf("Error in server config: %v", err)
	}
	if *archiveNow {
		path, err := srv.Archive()
		if err != nil {
			log.Fatalf("Archive failed: %v", err)
		}
		fmt.Println(path)
		return
	}
	log.Printf("Starting %s (%s)...", conf.Name, server.VersionString())
	if err := srv.Serve(ctx); err != nil {
		log.Printf("Server error: %v", err)
		return
	}
	log.Printf("Shut down cleanly")
}

// runConsole plays the game on the terminal and returns the exit status.
func runConsole(ctx context.Context, conf *server.Conf, db *ddb.Database, store *boltstore.Store) int {
	term := platform.NewTerminal(os.Stdin, os.Stdout)
	defer term.Close()

	opts := engine.Options{
		Game:       conf.Name,
		ScreenMode: conf.ScreenMode,
	}
	if store != nil {
		opts.Store = store
	}
	sess, err := engine.New(db, term, opts)
	if err != nil {
		log.Printf("Error starting session: %v", err)
		return 1
	}
	if conf.Welcome != "" {
		fmt.Println(strings.TrimRight(conf.Welcome, "\n"))
	}
	if err := sess.Run(ctx, engine.TraceExecutor{}); err != nil && ctx.Err() == nil {
		log.Printf("Session error: %v", err)
		return 1
	}
	fmt.Println()
	return 0
}
