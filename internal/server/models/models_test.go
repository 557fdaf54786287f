package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmotion(t *testing.T) {
	assert.True(t, EmotionJoy.Valid())
	assert.True(t, EmotionFear.Valid())
	assert.False(t, Emotion(-1).Valid())
	assert.False(t, Emotion(4).Valid())

	assert.Equal(t, "sorrow", EmotionSorrow.String())
	assert.Equal(t, "emotion(7)", Emotion(7).String())
}

func TestUser_Profile(t *testing.T) {
	u := &User{ID: 1, UserName: "alice", Role: RoleUser}
	assert.False(t, u.IsAdmin())

	p := Profile{Nickname: "al", Phone: "1", Email: "a@x", Gender: "f"}
	u.ApplyProfile(p)
	assert.Equal(t, p, u.Profile())

	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}
