package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// login accepts either an OAuth2 password form or a JSON body.
func (s *HTTPServer) login(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	tok, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: tok.AccessToken, TokenType: tok.TokenType})
}

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	user, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		UserName: req.Username,
		Password: req.Password,
		Profile: profileRequest{
			Nickname: req.Nickname,
			Phone:    req.Phone,
			Email:    req.Email,
			Gender:   req.Gender,
		}.profile(),
	})
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) readMe(c *gin.Context) {
	user, _ := currentUser(c)
	c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	user, err := s.users.UpdateOwnProfile(c.Request.Context(), actor, req.profile())
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// changePassword takes the passwords from the query string, a form or JSON.
func (s *HTTPServer) changePassword(c *gin.Context) {
	var req passwordChangeRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	if err := s.users.ChangeOwnPassword(c.Request.Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	list, err := s.users.List(c.Request.Context(), actor, q.Skip, q.Limit)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (s *HTTPServer) updateUser(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	user, err := s.users.UpdateProfile(c.Request.Context(), actor, id, req.profile())
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}

	actor, _ := currentUser(c)
	if err := s.users.Delete(c.Request.Context(), actor, id); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

func (s *HTTPServer) resetPassword(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}

	actor, _ := currentUser(c)
	password, err := s.users.ResetPassword(c.Request.Context(), actor, id)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset", "password": password})
}

func (s *HTTPServer) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.abort(c, fmt.Errorf("%w: invalid id %q", common.ErrorInvalidInput, c.Param("id")))
		return 0, false
	}
	return id, true
}
