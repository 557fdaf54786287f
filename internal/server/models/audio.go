package models

import (
	"fmt"
	"time"
)

// Emotion selects the reference voice used for synthesis.
type Emotion int

const (
	EmotionJoy Emotion = iota
	EmotionAnger
	EmotionSorrow
	EmotionFear
)

var emotionNames = [...]string{"joy", "anger", "sorrow", "fear"}

func (e Emotion) Valid() bool {
	return e >= EmotionJoy && e <= EmotionFear
}

func (e Emotion) String() string {
	if !e.Valid() {
		return fmt.Sprintf("emotion(%d)", int(e))
	}
	return emotionNames[e]
}

// Audio is a saved synthesis artifact. Path is the logical path under the
// public output root, e.g. "/output/data/<name>.wav".
type Audio struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Path      string    `db:"audio_path" json:"audio_path"`
	Emotion   Emotion   `db:"emo_type" json:"emo_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
