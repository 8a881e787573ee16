package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatsim/internal/auth"
	"chatsim/internal/chat"
	"chatsim/internal/custom"
	"chatsim/internal/roster"
	"chatsim/internal/session"
	"chatsim/internal/source"
	synchub "chatsim/internal/sync"
	"chatsim/pkg/database"
	"chatsim/pkg/utils"
)

func main() {
	appCfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// Data sources
	reg, err := source.LoadRegistry(appCfg.Sources.Path, &http.Client{Timeout: appCfg.Sources.FetchTimeout})
	if err != nil {
		log.Fatalf("load sources: %v", err)
	}
	customSrc := custom.NewSource()
	if err := reg.Register(customSrc); err != nil {
		log.Fatalf("register custom source: %v", err)
	}

	catalog := source.NewCatalog()
	loader := source.NewLoader(reg.Fetchers()...)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), appCfg.Sources.FetchTimeout)
	n, err := loader.LoadInto(loadCtx, catalog)
	cancelLoad()
	if err != nil {
		// custom characters still work without the built-in catalog
		log.Printf("[sources] catalog load failed: %v", err)
	} else {
		log.Printf("[sources] loaded %d characters", n)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies(appCfg.Server.TrustedProxies)

	hub := synchub.NewHub()
	chatHub := chat.NewHub()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"characters":  catalog.Len(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(appCfg.Auth.JWTSecret),
		Issuer:   appCfg.Auth.JWTIssuer,
		Duration: appCfg.Auth.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.PlayerID,
			"username": claims.Username,
		})
	})
	protected.GET("/sync/ws", synchub.WSHandler(hub))

	customRepo := custom.NewRepo(db)
	custom.NewHandler(customRepo).RegisterRoutes(protected)

	stateRepo := source.NewStateRepo(db)
	source.NewHandler(reg, stateRepo, appCfg.DefaultLang).RegisterRoutes(protected)

	rosterSvc := roster.NewService(catalog, customRepo, stateRepo, reg)
	roster.NewHandler(rosterSvc, appCfg.DefaultLang).RegisterRoutes(protected)

	chatRepo := chat.NewRepo(db)
	sessions := session.NewManager(
		session.NewRepo(db),
		rosterSvc,
		customRepo,
		chat.History{Repo: chatRepo, Hub: chatHub},
	)
	session.NewHandler(sessions, hub, appCfg.DefaultLang).RegisterRoutes(protected)
	chat.NewHandler(chatRepo, chatHub, sessions).RegisterRoutes(protected)

	tcpSrv := synchub.NewServer(appCfg.Server.TCPAddr, hub, auth.Verifier{Tokens: tokenSvc, Repo: authRepo})
	// bind early so address errors surface before serving HTTP
	if err := tcpSrv.Listen(); err != nil {
		log.Fatalf("tcp sync listen: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    appCfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", appCfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
