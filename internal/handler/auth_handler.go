/*
Package handler provides HTTP handler functions for account signup, login, and
logout.
*/
package handler

import (
	"net/http"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"pulsechat/internal/app/store"
	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/randx"
	"pulsechat/internal/pkg/req"
	"pulsechat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)

type SignupInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleSignup processes the request to create a new account with only
// username and password. The new account is added to the default room and
// signed in immediately.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := deps.Sessions.Resolve(auth.BearerToken(r)); ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		nickname, err := randx.Nickname()
		if err != nil {
			nickname = "User_X"
		}

		avatarTag, err := randx.AvatarTag()
		if err != nil {
			avatarTag = ""
		}

		user, createErr := deps.Store.CreateUser(r.Context(), store.CreateUserParams{
			Username:     input.Username,
			PasswordHash: string(hashedPassword),
			Nickname:     nickname,
			Avatar:       avatarTag,
		})
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		if memberErr := deps.Store.AddMember(r.Context(), user.ID, deps.DefaultRoomID); memberErr != nil {
			logx.Error(memberErr, "signup: failed to add user to default room", "user_id", user.ID)
		}

		token, err := deps.Sessions.Issue(user.ID)
		if err != nil {
			logx.Error(err, "signup: failed to issue session token", "user_id", user.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Store.SetUserOnline(r.Context(), user.ID, true)
		user.Online = true

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  user,
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies the credentials and issues a session token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := deps.Sessions.Resolve(auth.BearerToken(r)); ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, fetchErr := deps.Store.GetUserByUsername(r.Context(), input.Username)
		if fetchErr != nil {
			logx.Warn("login: user fetch failed", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := deps.Sessions.Issue(user.ID)
		if err != nil {
			logx.Error(err, "login: failed to issue session token", "user_id", user.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		deps.Store.SetUserOnline(r.Context(), user.ID, true)
		user.Online = true

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  user,
		})
	}
}

// HandleLogout revokes the presented session token and marks the account
// offline. Requires authentication.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		deps.Sessions.Revoke(auth.BearerToken(r))
		deps.Store.SetUserOnline(r.Context(), userID, false)

		resp.RespondSuccess(w, r, nil)
	}
}
