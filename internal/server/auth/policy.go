package auth

import (
	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
)

// Action names an operation subject to access control.
type Action string

const (
	ReadOwnProfile    Action = "read_own_profile"
	UpdateOwnProfile  Action = "update_own_profile"
	ChangeOwnPassword Action = "change_own_password"
	Synthesize        Action = "synthesize"
	UploadText        Action = "upload_text"
	SaveAudio         Action = "save_audio"
	ListOwnAudio      Action = "list_own_audio"

	ListUsers      Action = "list_users"
	DeleteUser     Action = "delete_user"
	ResetPassword  Action = "reset_password"
	UpdateUser     Action = "update_user"
	DeleteAnyAudio Action = "delete_any_audio"

	DeleteAudio Action = "delete_audio"
)

var selfService = map[Action]struct{}{
	ReadOwnProfile:    {},
	UpdateOwnProfile:  {},
	ChangeOwnPassword: {},
	Synthesize:        {},
	UploadText:        {},
	SaveAudio:         {},
	ListOwnAudio:      {},
}

var adminOnly = map[Action]struct{}{
	ListUsers:      {},
	DeleteUser:     {},
	ResetPassword:  {},
	UpdateUser:     {},
	DeleteAnyAudio: {},
}

// Authorize decides whether actor may perform action on a resource owned by
// ownerID (nil when the resource has no owner or is the actor itself).
// It returns nil or common.ErrorForbidden.
func Authorize(actor *models.User, action Action, ownerID *int64) error {
	if actor == nil {
		return common.ErrorForbidden
	}

	owns := ownerID == nil || *ownerID == actor.ID

	if _, ok := selfService[action]; ok {
		if owns {
			return nil
		}
		return common.ErrorForbidden
	}

	if _, ok := adminOnly[action]; ok {
		if actor.IsAdmin() {
			return nil
		}
		return common.ErrorForbidden
	}

	if action == DeleteAudio {
		if actor.IsAdmin() || (ownerID != nil && *ownerID == actor.ID) {
			return nil
		}
	}

	return common.ErrorForbidden
}
