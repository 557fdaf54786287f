// Package httpapi exposes the user and audio services over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/dmitrijs2005/audiokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const shutdownTimeout = 10 * time.Second

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*services.Token, error)
	UpdateOwnProfile(ctx context.Context, actor *models.User, p models.Profile) (*models.User, error)
	ChangeOwnPassword(ctx context.Context, actor *models.User, oldPassword, newPassword string) error
	List(ctx context.Context, actor *models.User, skip, limit int) ([]*models.User, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	ResetPassword(ctx context.Context, actor *models.User, id int64) (string, error)
	UpdateProfile(ctx context.Context, actor *models.User, id int64, p models.Profile) (*models.User, error)
}

type AudioService interface {
	UploadText(ctx context.Context, actor *models.User, fileName string, content []byte) (string, error)
	Synthesize(ctx context.Context, actor *models.User, text string, emotion models.Emotion) (string, error)
	Save(ctx context.Context, actor *models.User, emotion models.Emotion, logicalPath string) (*models.Audio, error)
	List(ctx context.Context, actor *models.User) ([]*models.Audio, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
}

// IdentityResolver turns a bearer token into the current user.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// StaticDir is a directory served read-only under URL prefix Prefix.
type StaticDir struct {
	Prefix string
	Dir    string
}

type HTTPServer struct {
	address  string
	engine   *gin.Engine
	users    UserService
	audio    AudioService
	identity IdentityResolver
	logger   logging.Logger
}

func NewHTTPServer(a string, l logging.Logger, us UserService, as AudioService, ir IdentityResolver, static ...StaticDir) *HTTPServer {
	s := &HTTPServer{
		address:  a,
		users:    us,
		audio:    as,
		identity: ir,
		logger:   l.With("module", "http_server"),
	}
	s.engine = s.routes(static)
	return s
}

// Handler returns the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes(static []StaticDir) *gin.Engine {
	r := gin.New()
	r.Use(s.requestID(), s.accessLog(), gin.CustomRecovery(s.recovery))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	r.POST("/token", s.login)
	r.POST("/register", s.register)

	users := r.Group("/users", s.requireUser())
	users.GET("/me", s.readMe)
	users.PUT("/me", s.updateMe)
	users.PUT("/me/password", s.changePassword)
	users.GET("/", s.listUsers)
	users.PUT("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)
	users.POST("/:id/reset_password", s.resetPassword)

	audio := r.Group("/audio", s.requireUser())
	audio.POST("/upload_text", s.uploadText)
	audio.POST("/synthesize", s.synthesize)
	audio.POST("/save", s.saveAudio)
	audio.GET("/", s.listAudio)
	audio.DELETE("/:id", s.deleteAudio)

	for _, d := range static {
		r.Static(d.Prefix, d.Dir)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
