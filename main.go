package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/grtshw/wedding-invitation/access"
	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/guestbook"
	"github.com/grtshw/wedding-invitation/migrations"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

func main() {
	// A missing .env is normal in production
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	utils.ConfigureLogger(cfg.LogLevel)
	utils.InitEncryption(cfg.EncryptionKey, cfg.EncryptionKeyPrevious)
	utils.ConfigureRateLimits(utils.RateLimitConfig{
		PublicPerMinute: cfg.RateLimitPublic,
		AuthPerMinute:   cfg.RateLimitAuth,
	})

	app := pocketbase.New()
	st := store.NewPocketBase(app)
	srv := newServer(app, st, cfg, loc)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	registerCommands(app, srv)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		configureSMTP(app, cfg)

		e.Router.BindFunc(utils.RequestIDMiddleware)
		e.Router.BindFunc(securityHeadersMiddleware)

		registerRoutes(e, srv)
		serveFrontend(e)

		ctx, cancel := context.WithCancel(context.Background())
		app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
			cancel()
			return te.Next()
		})
		go scheduleBackups(ctx, app, cfg.Backup, loc)

		return e.Next()
	})

	registerGuestHooks(app)
	registerAuditHooks(app)

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func registerCommands(app *pocketbase.PocketBase, srv *server) {
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "encrypt-pii",
		Short: "Encrypt guest phone numbers that are still stored in plain text",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := utils.EncryptAllGuestPII(app); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
		},
	})

	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "rotate-keys",
		Short: "Re-encrypt guest phone numbers with the current key and recompute blind indexes",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := utils.RotateGuestPII(app); err != nil {
				log.Fatalf("Key rotation failed: %v", err)
			}
		},
	})

	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "backup-now",
		Short: "Create a database backup and upload it to S3 immediately",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := runBackup(cmd.Context(), app, srv.cfg.Backup); err != nil {
				log.Fatalf("Backup failed: %v", err)
			}
		},
	})

	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "seed-settings",
		Short: "Insert the default WhatsApp template, wedding details and guest category if missing",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			n, err := migrations.SeedDefaults(app)
			if err != nil {
				log.Fatalf("Seeding failed: %v", err)
			}
			fmt.Printf("Seeded %d default setting(s)\n", n)
		},
	})

	var id, name string
	checkAccess := &cobra.Command{
		Use:   "check-access",
		Short: "Resolve an invitation link the way the public page does",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			gate := access.NewGate(srv.resolver)
			state, _ := gate.Resolve(cmd.Context(), access.Params{
				ID:   strings.TrimSpace(id),
				Name: strings.TrimSpace(name),
			})
			fmt.Println(state)
			if !state.IsGranted() {
				os.Exit(1)
			}
		},
	}
	checkAccess.Flags().StringVar(&id, "u", "", "guest id")
	checkAccess.Flags().StringVar(&name, "to", "", "guest name")
	app.RootCmd.AddCommand(checkAccess)

	var lang string
	printGuestbook := &cobra.Command{
		Use:   "guestbook",
		Short: "Print the guestbook threads as shown on the invitation",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			messages, err := srv.store.ListMessages(cmd.Context())
			if err != nil {
				log.Fatalf("Failed to list messages: %v", err)
			}
			tag, err := language.Parse(lang)
			if err != nil {
				tag = srv.cfg.Language()
			}
			printThreads(os.Stdout, guestbook.NewFeed(messages), time.Now(), tag)
		},
	}
	printGuestbook.Flags().StringVar(&lang, "lang", "", "display language (en, id)")
	app.RootCmd.AddCommand(printGuestbook)
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(e *core.RequestEvent) error {
	h := e.Response.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

	// Maps are embedded from Google, music and photos may come from any https host
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; font-src 'self' https://fonts.gstatic.com; img-src 'self' data: https:; media-src 'self' https:; frame-src https://www.google.com https://maps.google.com; connect-src 'self'; frame-ancestors 'none'")

	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

	return e.Next()
}

// registerRoutes sets up all custom API endpoints
func registerRoutes(e *core.ServeEvent, srv *server) {
	// Public invitation endpoints
	e.Router.GET("/api/public/access", srv.handlePublicAccess).BindFunc(utils.RateLimitPublic)
	e.Router.GET("/api/public/wedding", srv.handlePublicWedding).BindFunc(utils.RateLimitPublic)
	e.Router.GET("/api/public/messages", srv.handleMessagesList).BindFunc(utils.RateLimitPublic)
	e.Router.POST("/api/public/messages", srv.handleMessageCreate).BindFunc(utils.RateLimitPublic)

	// Dashboard
	e.Router.GET("/api/dashboard/stats", srv.handleDashboardStats).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.GET("/api/comments", srv.handleCommentsList).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.DELETE("/api/comments/{id}", srv.handleCommentDelete).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	// Guests
	e.Router.GET("/api/guests", srv.handleGuestsList).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.GET("/api/guests/{id}", srv.handleGuestGet).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.POST("/api/guests", srv.handleGuestCreate).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.POST("/api/guests/batch", srv.handleGuestsBatch).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.PATCH("/api/guests/{id}", srv.handleGuestUpdate).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.DELETE("/api/guests/{id}", srv.handleGuestDelete).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.GET("/api/guests/{id}/invite", srv.handleGuestInvite).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.GET("/api/guests/{id}/qr", srv.handleGuestQR).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)

	// Settings
	e.Router.GET("/api/settings/categories", srv.handleCategoriesList).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.POST("/api/settings/categories", srv.handleCategoryCreate).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.PATCH("/api/settings/categories/{id}", srv.handleCategoryUpdate).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.DELETE("/api/settings/categories/{id}", srv.handleCategoryDelete).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/settings/sessions", srv.handleSessionsList).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.POST("/api/settings/sessions", srv.handleSessionSave).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.PATCH("/api/settings/sessions/{id}", srv.handleSessionSave).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)
	e.Router.DELETE("/api/settings/sessions/{id}", srv.handleSessionDelete).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/settings/wa-template", srv.handleWATemplateGet).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.PUT("/api/settings/wa-template", srv.handleWATemplatePut).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/settings/wedding", srv.handleWeddingGet).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireViewer)
	e.Router.PUT("/api/settings/wedding", srv.handleWeddingPut).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	utils.Logger("routes").Info().Msg("registered API endpoints")
}

// serveFrontend serves the invitation SPA
func serveFrontend(e *core.ServeEvent) {
	staticDir := "./pb_public"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		staticDir = "../frontend/dist"
	}

	e.Router.GET("/{path...}", func(re *core.RequestEvent) error {
		path := re.Request.PathValue("path")

		// Unmatched API routes stay JSON 404s
		if strings.HasPrefix(path, "api/") {
			return re.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}

		if path == "" || path == "/" {
			return re.FileFS(os.DirFS(staticDir), "index.html")
		}

		if info, err := os.Stat(staticDir + "/" + path); err == nil && !info.IsDir() {
			return re.FileFS(os.DirFS(staticDir), path)
		}

		// SPA fallback for client-side routing
		return re.FileFS(os.DirFS(staticDir), "index.html")
	})
}

// registerGuestHooks keeps the derived guest columns in sync for every
// write, including those made from the admin UI.
func registerGuestHooks(app *pocketbase.PocketBase) {
	prepare := func(e *core.RecordEvent) error {
		if err := store.PrepareGuestRecord(e.Record); err != nil {
			return err
		}
		return e.Next()
	}
	app.OnRecordCreateExecute(utils.CollectionGuests).BindFunc(prepare)
	app.OnRecordUpdateExecute(utils.CollectionGuests).BindFunc(prepare)
}

// registerAuditHooks sets up audit logging for CRUD operations and auth events
func registerAuditHooks(app *pocketbase.PocketBase) {
	for _, coll := range utils.AuditedCollections {
		collName := coll

		app.OnRecordAfterCreateSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "create", collName, e.Record.Id, e.Record.FieldsData())
			return e.Next()
		})

		app.OnRecordAfterUpdateSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "update", collName, e.Record.Id, e.Record.FieldsData())
			return e.Next()
		})

		app.OnRecordAfterDeleteSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "delete", collName, e.Record.Id, nil)
			return e.Next()
		})
	}

	app.OnRecordAuthRequest(utils.CollectionUsers).BindFunc(func(e *core.RecordAuthRequestEvent) error {
		utils.LogFromRequest(app, e.RequestEvent, "login", utils.CollectionUsers, e.Record.Id, "success", nil, "")
		return e.Next()
	})
}
