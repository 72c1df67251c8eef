package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"inkwell/handler"
	"inkwell/posts"
	"inkwell/store"
)

const DEV_ENV = "dev"
const PRO_ENV = "pro"

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = PRO_ENV
	}

	fmt.Println("Running database schema migrations...")
	db, err := setupDB()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No database schema migration ran. Database schema already in latest version")
		} else {
			fmt.Printf("Error during database schema migration: %v\n", err)
			os.Exit(1)
		}
	}

	secret, err := fetchSecret(env)
	if err != nil {
		panic(err)
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		panic(err)
	}

	st := store.New(db)
	h := &handler.Handler{
		Posts:        posts.NewService(st),
		Users:        st,
		JWTSecret:    secret,
		Environment:  env,
		EnableSignup: os.Getenv("ENABLE_SIGNUP") == "true",
		UploadDir:    uploadDir,
	}

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = h.HTTPErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	origin := os.Getenv("FRONTEND_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{origin},
		AllowCredentials: true,
	}))

	e.GET("/home", func(c echo.Context) error {
		return c.String(http.StatusOK, "Server is running...")
	})
	e.Static("/uploads", uploadDir)

	requireAuth := h.RequireAuth()
	// 60 reads per minute per client on the public feed
	searchLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(1),
			Burst:     60,
			ExpiresIn: 3 * time.Minute,
		}),
	})

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.Me)

	postGroup := api.Group("/posts")
	postGroup.GET("", h.GetPosts, searchLimiter)
	postGroup.GET("/tags", h.GetTags, searchLimiter)
	postGroup.GET("/mine", h.GetMyPosts, requireAuth)
	postGroup.GET("/:id/edit", h.GetPostForEdit, requireAuth)
	postGroup.POST("", h.NewPost, requireAuth)
	postGroup.PATCH("/:id", h.EditPost, requireAuth)
	postGroup.DELETE("/:id", h.DeletePost, requireAuth)
	// keep last so the static routes above win
	postGroup.GET("/:slug", h.GetPostBySlug, searchLimiter)

	api.POST("/upload", h.Upload, requireAuth)

	addr := os.Getenv("ADDRESS_LISTEN")
	if env == DEV_ENV && addr == "" {
		addr = ":8080"
	}

	if addr != "" {
		e.Logger.Fatal(e.Start(addr))
	} else {
		// Cache certificates to avoid issues with rate limits (https://letsencrypt.org/docs/rate-limits)
		e.AutoTLSManager.Cache = autocert.DirCache("/var/www/.cache")
		if onlyHost := os.Getenv("WHITELIST_HOST"); onlyHost != "" {
			e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(onlyHost)
		}
		e.Pre(middleware.HTTPSRedirect())
		e.Logger.Fatal(e.StartAutoTLS(":443"))
	}
}

func fetchSecret(env string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" && env == DEV_ENV {
		secret = "unsecure"
	}
	if secret == "" {
		return "", errors.New("no secret defined")
	}
	return secret, nil
}

func setupDB() (*sql.DB, error) {
	dbDriver := os.Getenv("DB_DRIVER")
	dataSourceName := os.Getenv("DB_URL")

	if dbDriver == "" {
		dbDriver = "sqlite"
	}

	var db *sql.DB
	var err error
	var driver database.Driver
	if dbDriver == "sqlite" {
		if dataSourceName == "" {
			dataSourceName = "./inkwell.db?_pragma=foreign_keys(1)"
		}
		db, err = sql.Open(dbDriver, dataSourceName)
		if err != nil {
			return nil, err
		}
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, err
		}
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://db/migrations",
		dbDriver, driver)
	if err != nil {
		return nil, err
	}

	err = m.Up()

	return db, err
}
