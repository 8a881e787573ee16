package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatsim/internal/auth"
	"chatsim/internal/custom"
	"chatsim/pkg/database"
)

// Columns: id, name_<lang>..., short_name_<lang>..., images, description.
// images is a ";"-separated list. Rows with an existing id are skipped.
func main() {
	var (
		in       = flag.String("in", "data/custom_characters.csv", "input CSV path")
		username = flag.String("player", "", "username owning the imported characters")
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

	n, err := importCharacters(ctx, custom.NewRepo(db), p.ID, *in)
	if err != nil {
		log.Fatalf("import custom characters failed: %v", err)
	}
	log.Printf("✅ imported %d custom characters for %s from %s", n, p.Username, *in)
}

func importCharacters(ctx context.Context, repo *custom.Repo, ownerID, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, err
		}
		if len(row) == 0 {
			continue
		}

		ch := custom.Character{
			OwnerID:     ownerID,
			ID:          valueAt(header, row, "id"),
			Names:       prefixed(header, row, "name_"),
			ShortNames:  prefixed(header, row, "short_name_"),
			Images:      splitList(valueAt(header, row, "images")),
			Description: valueAt(header, row, "description"),
		}
		if len(ch.Names) == 0 || len(ch.Images) == 0 {
			log.Printf("line %d: skipped, needs a name and an image", line)
			continue
		}
		if ch.ID == "" {
			ch.ID = custom.IDPrefix + uuid.NewString()
		} else if !strings.HasPrefix(ch.ID, custom.IDPrefix) {
			ch.ID = custom.IDPrefix + ch.ID
		}

		existing, err := repo.Get(ctx, ownerID, ch.ID)
		if err != nil {
			return imported, err
		}
		if existing != nil {
			log.Printf("line %d: %s already exists, skipped", line, ch.ID)
			continue
		}

		if err := repo.Create(ctx, ch); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	return imported, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// prefixed collects columns like name_en, name_ja into a locale map.
func prefixed(header map[string]int, row []string, prefix string) map[string]string {
	out := make(map[string]string)
	for col := range header {
		lang, ok := strings.CutPrefix(col, prefix)
		if !ok || lang == "" {
			continue
		}
		if v := valueAt(header, row, col); v != "" {
			out[lang] = v
		}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
