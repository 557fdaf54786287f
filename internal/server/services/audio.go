package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/filex"
	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/auth"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/dmitrijs2005/audiokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/audiokeeper/internal/server/sandbox"
	"github.com/dmitrijs2005/audiokeeper/internal/server/storage"
	"github.com/dmitrijs2005/audiokeeper/internal/server/synth"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// MaxTextSize bounds uploaded text files.
const MaxTextSize = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// AudioRoots are the sandbox roots used by AudioService.
type AudioRoots struct {
	Output string // public root, deletions are confined here
	Temp   string // scratch area, saves read from here
	Data   string // saved artifacts
}

type AudioService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	resolver    *sandbox.Resolver
	synth       synth.Synthesizer
	mirror      storage.Mirror
	roots       AudioRoots
	logger      logging.Logger
	now         func() time.Time
}

func NewAudioService(db *sql.DB, m repomanager.RepositoryManager, resolver *sandbox.Resolver, s synth.Synthesizer,
	mirror storage.Mirror, roots AudioRoots, logger logging.Logger) *AudioService {
	return &AudioService{
		db:          db,
		repomanager: m,
		resolver:    resolver,
		synth:       s,
		mirror:      mirror,
		roots:       roots,
		logger:      logger,
		now:         time.Now,
	}
}

// UploadText decodes an uploaded .txt file. UTF-8 is tried first, then GBK.
func (s *AudioService) UploadText(ctx context.Context, actor *models.User, fileName string, content []byte) (string, error) {
	if err := auth.Authorize(actor, auth.UploadText, nil); err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".txt") {
		return "", fmt.Errorf("%w: only .txt files are supported", common.ErrorInvalidInput)
	}
	if len(content) > MaxTextSize {
		return "", fmt.Errorf("%w: file is larger than %d bytes", common.ErrorInvalidInput, MaxTextSize)
	}

	if utf8.Valid(content) {
		return string(bytes.TrimPrefix(content, utf8BOM)), nil
	}

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(content)
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("%w: unsupported text encoding", common.ErrorInvalidInput)
	}
	return string(decoded), nil
}

// Synthesize produces a scratch artifact and returns its logical path.
func (s *AudioService) Synthesize(ctx context.Context, actor *models.User, text string, emotion models.Emotion) (string, error) {
	if err := auth.Authorize(actor, auth.Synthesize, nil); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is empty", common.ErrorInvalidInput)
	}
	if !emotion.Valid() {
		return "", fmt.Errorf("%w: emo_type must be 0..3", common.ErrorInvalidInput)
	}

	path, err := s.synth.Synthesize(ctx, text, emotion)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			return "", err
		}
		if !errors.Is(err, common.ErrorUpstream) {
			err = fmt.Errorf("%w: %v", common.ErrorUpstream, err)
		}
		return "", err
	}
	return path, nil
}

// Save copies a scratch artifact into the data root and records it.
// The record is only written after the copy succeeded.
func (s *AudioService) Save(ctx context.Context, actor *models.User, emotion models.Emotion, logicalPath string) (*models.Audio, error) {
	if err := auth.Authorize(actor, auth.SaveAudio, nil); err != nil {
		return nil, err
	}
	if !emotion.Valid() {
		return nil, fmt.Errorf("%w: emo_type must be 0..3", common.ErrorInvalidInput)
	}

	src, err := s.resolver.ConfineFile(logicalPath, s.roots.Temp)
	if err != nil {
		s.logger.Warn(ctx, "save rejected", "user_id", actor.ID, "path", logicalPath, "error", err)
		return nil, err
	}
	if !filex.Exists(src) {
		return nil, fmt.Errorf("%w: audio file", common.ErrorNotFound)
	}

	name := filepath.Base(src)
	dst := filepath.Join(s.roots.Data, name)
	if err := filex.CopyFile(src, dst); err != nil {
		return nil, internalErr("copy audio", err)
	}

	now := s.now().UTC()
	audio := &models.Audio{
		UserID:    actor.ID,
		Path:      s.resolver.PublicPath("data", name),
		Emotion:   emotion,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.repomanager.Audios(s.db).Create(ctx, audio); err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			s.logger.Warn(ctx, "cleanup after failed insert", "path", dst, "error", rmErr)
		}
		return nil, internalErr("create audio", err)
	}

	if err := s.mirror.Put(ctx, storage.Key(actor.ID, name), dst); err != nil {
		s.logger.Warn(ctx, "mirror put failed", "audio_id", audio.ID, "error", err)
	}

	s.logger.Info(ctx, "audio saved", "audio_id", audio.ID, "user_id", actor.ID, "path", audio.Path)
	return audio, nil
}

// List returns the actor's artifacts, newest first.
func (s *AudioService) List(ctx context.Context, actor *models.User) ([]*models.Audio, error) {
	if err := auth.Authorize(actor, auth.ListOwnAudio, nil); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Audios(s.db).ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, internalErr("list audio", err)
	}
	return list, nil
}

// Delete removes an artifact record and, best effort, its file. A stored
// path that resolves outside the output root or names a directory is
// rejected and nothing is touched.
func (s *AudioService) Delete(ctx context.Context, actor *models.User, id int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Audios(tx)

		audio, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if err := auth.Authorize(actor, auth.DeleteAudio, &audio.UserID); err != nil {
			return err
		}

		path, err := s.resolver.ConfineFile(audio.Path, s.roots.Output)
		if err != nil {
			s.logger.Warn(ctx, "delete rejected", "audio_id", id, "path", audio.Path, "error", err)
			return err
		}

		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Info(ctx, "audio file already gone", "audio_id", id, "path", path)
			} else {
				s.logger.Warn(ctx, "audio file removal failed", "audio_id", id, "path", path, "error", err)
			}
		}

		if err := s.mirror.Delete(ctx, storage.Key(audio.UserID, filepath.Base(path))); err != nil {
			s.logger.Warn(ctx, "mirror delete failed", "audio_id", id, "error", err)
		}

		return repo.Delete(ctx, id)
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "audio deleted", "audio_id", id, "by", actor.ID)
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case errors.Is(err, common.ErrorForbidden), errors.Is(err, common.ErrorInvalidInput):
		return err
	default:
		return internalErr("delete audio", err)
	}
}
