package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"chatsim/internal/auth"
	"chatsim/internal/custom"
	"chatsim/internal/source"
	"chatsim/pkg/database"
)

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// export-mirror writes a player's custom characters as <dir>/<key>.json so
// mirror-server can publish them as a url data source.
func main() {
	var (
		username = flag.String("player", "", "username whose custom characters are exported")
		dir      = flag.String("dir", "configs/data", "output directory")
		key      = flag.String("key", "", "source key used as file name (default: <player>-custom)")
	)
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		log.Fatal("-player is required")
	}
	if *key == "" {
		*key = strings.ToLower(*username) + "-custom"
	}
	if !validKey.MatchString(*key) {
		log.Fatalf("invalid source key %q", *key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	p, err := auth.NewRepo(db).GetByUsername(ctx, *username)
	if err != nil {
		log.Fatalf("find player: %v", err)
	}
	if p == nil {
		log.Fatalf("player %q not found", *username)
	}

	chars, err := custom.NewRepo(db).List(ctx, p.ID)
	if err != nil {
		log.Fatalf("list custom characters: %v", err)
	}

	out := make([]source.Record, 0, len(chars))
	for _, c := range chars {
		var search []string
		if c.Description != "" {
			search = []string{c.Description}
		}
		// ids must not collide with the player's own custom characters once loaded
		ch := c.Model()
		ch.ID = strings.TrimPrefix(ch.ID, custom.IDPrefix)
		out = append(out, source.RecordOf(ch, search...))
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}

	path := filepath.Join(*dir, *key+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("✅ exported %d characters to %s", len(out), path)
}
