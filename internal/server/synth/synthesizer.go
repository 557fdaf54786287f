package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/google/uuid"
)

// Synthesizer turns text into a scratch WAV file and returns its logical
// path (e.g. "/output/temp/<uuid>.wav").
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, emotion models.Emotion) (string, error)
}

type speechGenerator interface {
	GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// Service writes generated speech into tempRoot. logicalTemp is the public
// prefix of tempRoot, e.g. "/output/temp".
type Service struct {
	client      speechGenerator
	voiceDir    string
	tempRoot    string
	logicalTemp string
	logger      logging.Logger
}

func NewService(client speechGenerator, voiceDir, tempRoot, logicalTemp string, logger logging.Logger) *Service {
	return &Service{
		client:      client,
		voiceDir:    voiceDir,
		tempRoot:    tempRoot,
		logicalTemp: logicalTemp,
		logger:      logger,
	}
}

// ReferenceVoice is the reference recording for emotion. Unknown emotions
// fall back to joy.
func (s *Service) ReferenceVoice(emotion models.Emotion) string {
	if !emotion.Valid() {
		emotion = models.EmotionJoy
	}
	return filepath.Join(s.voiceDir, emotion.String()+".wav")
}

// Synthesize failures from the backend wrap common.ErrorUpstream.
func (s *Service) Synthesize(ctx context.Context, text string, emotion models.Emotion) (string, error) {
	ref := s.ReferenceVoice(emotion)
	if _, err := os.Stat(ref); err != nil {
		s.logger.Error(ctx, "reference voice missing", "path", ref, "error", err)
		return "", fmt.Errorf("%w: reference voice for %s is missing", common.ErrorUpstream, emotion)
	}

	audio, err := s.client.GenerateSpeech(ctx, SpeechRequest{
		Text:           text,
		SpeakerRefPath: ref,
		EmotionRefPath: ref,
	})
	if err != nil {
		s.logger.Warn(ctx, "speech generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}

	name := uuid.NewString() + ".wav"
	if err := os.WriteFile(filepath.Join(s.tempRoot, name), audio, 0o640); err != nil {
		return "", fmt.Errorf("%w: write scratch file: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "speech generated", "file", name, "bytes", len(audio), "emotion", emotion.String())
	return s.logicalTemp + "/" + name, nil
}
