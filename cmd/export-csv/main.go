package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chatsim/internal/auth"
	"chatsim/internal/chat"
	"chatsim/pkg/database"
	"chatsim/pkg/models"
)

func main() {
	var (
		out      = flag.String("out", "data/chat.csv", "output CSV path")
		username = flag.String("player", "", "username whose chat history is exported")
	)
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		log.Fatal("-player is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	items, err := chat.NewRepo(db).List(ctx, p.ID)
	if err != nil {
		log.Fatalf("list chat: %v", err)
	}
	if err := exportChat(items, *out); err != nil {
		log.Fatalf("export chat failed: %v", err)
	}

	log.Printf("✅ exported %d chat items for %s to %s", len(items), p.Username, *out)
}

func exportChat(items []models.ChatItem, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"position", "id", "char_id", "img", "content", "is_image", "created_at"}); err != nil {
		return err
	}

	for _, it := range items {
		var charID, img string
		if it.Char != nil {
			charID, img = it.Char.CharID, it.Char.Img
		}
		if err := w.Write([]string{
			strconv.Itoa(it.Position),
			it.ID,
			charID,
			img,
			it.Content,
			strconv.FormatBool(it.IsImage),
			it.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
