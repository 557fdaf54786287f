package httpapi

import "github.com/dmitrijs2005/audiokeeper/internal/server/models"

type tokenRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
}

// profileRequest accepts username for compatibility with existing clients;
// it is never applied.
type profileRequest struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
}

func (p profileRequest) profile() models.Profile {
	return models.Profile{Nickname: p.Nickname, Phone: p.Phone, Email: p.Email, Gender: p.Gender}
}

type passwordChangeRequest struct {
	OldPassword string `form:"old_password" json:"old_password" binding:"required"`
	NewPassword string `form:"new_password" json:"new_password" binding:"required"`
}

type listUsersQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

type synthesizeRequest struct {
	Text    string `form:"text" binding:"required"`
	EmoType *int   `form:"emo_type" binding:"required"`
}

type saveAudioRequest struct {
	EmoType   *int   `form:"emo_type" binding:"required"`
	AudioPath string `form:"audio_path" binding:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}
