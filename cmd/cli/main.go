package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	global := flag.NewFlagSet("chatsim", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	lang := global.String("lang", "", "display locale (en, ja, zh, ko)")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	c := &apiClient{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   *baseURL,
		tokenPath: *tokenPath,
		lang:      *lang,
	}
	ctx := context.Background()

	switch cmd {
	case "auth":
		handleAuth(ctx, c, sub, rest)
	case "chars":
		handleChars(ctx, c, sub, rest)
	case "sources":
		handleSources(ctx, c, sub, rest)
	case "custom":
		handleCustom(ctx, c, sub, rest)
	case "session":
		handleSession(ctx, c, sub, rest)
	case "chat":
		handleChat(ctx, c, sub, rest)
	case "sync":
		handleSync(c, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("chatsim [-api URL] [-token PATH] [-lang LANG] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  chars search|show")
	fmt.Println("  sources list|set")
	fmt.Println("  custom list|create")
	fmt.Println("  session show|add|remove|select|shortcut|cancel|remove-from-row|delete")
	fmt.Println("  chat list|say|delete|watch")
	fmt.Println("  sync listen|watch")
}
