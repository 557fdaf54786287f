// Package server wires configuration, storage, services and transports
// together and runs the HTTP and gRPC servers until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/filex"
	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/auth"
	"github.com/dmitrijs2005/audiokeeper/internal/server/config"
	"github.com/dmitrijs2005/audiokeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/audiokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/audiokeeper/internal/server/sandbox"
	"github.com/dmitrijs2005/audiokeeper/internal/server/services"
	"github.com/dmitrijs2005/audiokeeper/internal/server/storage"
	"github.com/dmitrijs2005/audiokeeper/internal/server/synth"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/audiokeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.HTTPServer
	grpc   *gs.GRPCServer
	tts    *synth.HTTPClient
}

// NewApp opens the database, applies migrations, creates the output
// directories and builds both servers.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if err := filex.EnsureDirs(c.Dirs()...); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	db, dialect, err := dbx.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	secret, generated := c.Secret(common.GenerateRandByteArray)
	if generated {
		logger.Warn(ctx, "no secret key configured, using a random one; tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(secret)

	resolver, err := sandbox.NewResolver(c.ProjectRoot, c.OutputRoot(), c.PublicRootName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	mirror, err := storage.New(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}

	tts := synth.NewHTTPClient(c.TTSServiceURL, c.TTSTimeout)
	synthesizer := synth.NewService(tts, c.VoiceDir, c.TempRoot(), resolver.PublicPath("temp"), logger)

	us := services.NewUserService(db, rm, tokens, c, logger.With("module", "users"))
	as := services.NewAudioService(db, rm, resolver, synthesizer, mirror,
		services.AudioRoots{Output: c.OutputRoot(), Temp: c.TempRoot(), Data: c.DataRoot()},
		logger.With("module", "audio"))

	gin.SetMode(gin.ReleaseMode)
	hs := httpapi.NewHTTPServer(c.HTTPAddr, logger, us, as, auth.NewIdentityResolver(tokens, us),
		httpapi.StaticDir{Prefix: "/" + c.PublicRootName, Dir: c.OutputRoot()})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   hs,
		grpc:   gs.NewGRPCServer(c.GRPCAddr, logger, db),
		tts:    tts,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) checkTTS(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := app.tts.HealthCheck(ctx); err != nil {
		app.logger.Warn(ctx, "speech synthesis backend unavailable", "url", app.config.TTSServiceURL, "error", err)
		return
	}
	app.logger.Info(ctx, "speech synthesis backend reachable", "url", app.config.TTSServiceURL)
}

// run starts one server and cancels the whole app when it fails.
func (app *App) run(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	go app.checkTTS(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.run(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
