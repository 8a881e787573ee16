package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type authResponse struct {
	Token string `json:"token"`
}

func handleAuth(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(c.tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(c.tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		if token, err := readToken(c.tokenPath); err == nil && token != "" {
			// revoke server side too; a dead server should not block local logout
			if err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout: %v", err)
			}
		}
		if err := clearToken(c.tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: chatsim auth <login|register|logout>")
	}
}

type characterView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	SourceKey string `json:"source_key"`
	Name      string `json:"name"`
	Images    []struct {
		Img string `json:"img"`
		URL string `json:"url"`
	} `json:"images"`
}

func handleChars(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("chars search", flag.ExitOnError)
		query := fs.String("q", "", "comma-separated search terms")
		_ = fs.Parse(args)

		var resp struct {
			Total int             `json:"total"`
			Items []characterView `json:"items"`
		}
		if err := c.do(ctx, http.MethodGet, "/users/characters", url.Values{"q": {*query}}, nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		for _, ch := range resp.Items {
			fmt.Printf("%-32s %-10s %s (%d images)\n", ch.ID, ch.SourceKey, ch.Name, len(ch.Images))
		}
		fmt.Printf("%d characters\n", resp.Total)
	case "show":
		if len(args) < 1 {
			log.Fatal("usage: chatsim chars show <id>")
		}
		var resp characterView
		if err := c.do(ctx, http.MethodGet, "/users/characters/"+url.PathEscape(args[0]), nil, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: chatsim chars <search|show>")
	}
}

func handleSources(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "list":
		var resp any
		if err := c.do(ctx, http.MethodGet, "/users/sources", nil, nil, &resp); err != nil {
			log.Fatalf("list sources failed: %v", err)
		}
		printJSON(resp)
	case "set":
		fs := flag.NewFlagSet("sources set", flag.ExitOnError)
		key := fs.String("key", "", "source key")
		enabled := fs.String("enabled", "", "true or false")
		group := fs.String("group", "", "filter group key")
		active := fs.String("active", "", "comma-separated toggle flags for the group, e.g. 1,0,1")
		_ = fs.Parse(args)

		if *key == "" {
			log.Fatal("-key is required")
		}
		payload := map[string]any{}
		if *enabled != "" {
			b, err := strconv.ParseBool(*enabled)
			if err != nil {
				log.Fatalf("-enabled: %v", err)
			}
			payload["enabled"] = b
		}
		if *group != "" {
			var flags []bool
			for _, f := range strings.Split(*active, ",") {
				b, err := strconv.ParseBool(strings.TrimSpace(f))
				if err != nil {
					log.Fatalf("-active: %v", err)
				}
				flags = append(flags, b)
			}
			payload["groups"] = []map[string]any{{"group_key": *group, "active": flags}}
		}

		var resp any
		if err := c.do(ctx, http.MethodPut, "/users/sources/"+url.PathEscape(*key), nil, payload, &resp); err != nil {
			log.Fatalf("update source failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: chatsim sources <list|set>")
	}
}

func handleCustom(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "list":
		var resp any
		if err := c.do(ctx, http.MethodGet, "/users/custom", nil, nil, &resp); err != nil {
			log.Fatalf("list custom failed: %v", err)
		}
		printJSON(resp)
	case "create":
		fs := flag.NewFlagSet("custom create", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		nameLang := fs.String("name-lang", "en", "locale of -name")
		images := fs.String("images", "", "comma-separated image URLs")
		desc := fs.String("desc", "", "description, also searchable")
		_ = fs.Parse(args)

		if *name == "" || *images == "" {
			log.Fatal("-name and -images are required")
		}
		payload := map[string]any{
			"names":       map[string]string{*nameLang: *name},
			"images":      strings.Split(*images, ","),
			"description": *desc,
		}
		var resp any
		if err := c.do(ctx, http.MethodPost, "/users/custom", nil, payload, &resp); err != nil {
			log.Fatalf("create custom failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: chatsim custom <list|create>")
	}
}

func handleSession(ctx context.Context, c *apiClient, sub string, args []string) {
	fs := flag.NewFlagSet("session "+sub, flag.ExitOnError)
	charID := fs.String("char", "", "character id")
	img := fs.String("img", "", "image variant")
	n := fs.Int("n", 0, "shortcut number (1 = player)")
	_ = fs.Parse(args)

	var (
		method  string
		path    string
		query   url.Values
		payload any
	)
	switch sub {
	case "show":
		method, path = http.MethodGet, "/users/session"
	case "add":
		method, path = http.MethodPost, "/users/session/chars"
		payload = map[string]string{"char_id": *charID, "img": *img}
	case "remove":
		method, path = http.MethodDelete, "/users/session/chars"
		query = url.Values{"char_id": {*charID}, "img": {*img}}
	case "select":
		// an empty -char selects the player
		method, path = http.MethodPut, "/users/session/current"
		payload = map[string]string{"char_id": *charID, "img": *img}
	case "shortcut":
		method, path = http.MethodPost, "/users/session/shortcut"
		payload = map[string]int{"n": *n}
	case "cancel":
		method, path = http.MethodPost, "/users/session/pending/cancel"
	case "remove-from-row":
		method, path = http.MethodPost, "/users/session/pending/remove-from-row"
	case "delete":
		method, path = http.MethodPost, "/users/session/pending/delete"
	default:
		log.Fatal("usage: chatsim session <show|add|remove|select|shortcut|cancel|remove-from-row|delete>")
	}

	var resp any
	if err := c.do(ctx, method, path, query, payload, &resp); err != nil {
		log.Fatalf("session %s failed: %v", sub, err)
	}
	printJSON(resp)
}

func handleChat(ctx context.Context, c *apiClient, sub string, args []string) {
	switch sub {
	case "list":
		var resp any
		if err := c.do(ctx, http.MethodGet, "/users/chat", nil, nil, &resp); err != nil {
			log.Fatalf("list chat failed: %v", err)
		}
		printJSON(resp)
	case "say":
		fs := flag.NewFlagSet("chat say", flag.ExitOnError)
		image := fs.Bool("image", false, "content is an image URL")
		at := fs.Int("at", -1, "insert position; negative appends")
		_ = fs.Parse(args)

		text := strings.TrimSpace(strings.Join(fs.Args(), " "))
		if text == "" {
			log.Fatal("usage: chatsim chat say [-image] [-at N] <text>")
		}
		payload := map[string]any{"content": text, "is_image": *image}
		if *at >= 0 {
			payload["insert_idx"] = *at
		}
		var resp any
		if err := c.do(ctx, http.MethodPost, "/users/chat", nil, payload, &resp); err != nil {
			log.Fatalf("say failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		if len(args) < 1 {
			log.Fatal("usage: chatsim chat delete <id>")
		}
		if err := c.do(ctx, http.MethodDelete, "/users/chat/"+url.PathEscape(args[0]), nil, nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println("✅ deleted")
	case "watch":
		endpoint, err := websocketURL(c.baseURL, "/users/chat/ws", mustToken(c.tokenPath))
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
		if err := runChatWebSocket(endpoint); err != nil {
			log.Fatalf("chat watch failed: %v", err)
		}
	default:
		log.Fatal("usage: chatsim chat <list|say|delete|watch>")
	}
}

func handleSync(c *apiClient, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP sync server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)

		token := mustToken(c.tokenPath)
		for {
			if err := runSyncTCP(*addr, token, *pretty); err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "watch":
		endpoint, err := websocketURL(c.baseURL, "/users/sync/ws", mustToken(c.tokenPath))
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("sync watch failed: %v", err)
		}
	default:
		log.Fatal("usage: chatsim sync <listen|watch>")
	}
}

func runSyncTCP(addr, token string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", token); err != nil {
		return err
	}

	log.Printf("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

// runChatWebSocket prints chat events and sends each stdin line as a message
// from the current author.
func runChatWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println(string(msg))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		b, _ := json.Marshal(map[string]any{"content": text})
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
	return scanner.Err()
}
