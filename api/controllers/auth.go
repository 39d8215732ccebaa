package controllers

import (
	"mime"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthDeps groups what the sign-in handlers share.
type AuthDeps struct {
	Service auth.Service
	Cookies config.CookieConfig
	Media   config.MediaConfig
	Logger  *logger.Logger
}

// Register creates an account from JSON or from a multipart form carrying an avatar file.
func Register(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.RegisterRequest
		if isMultipart(r) {
			maxBytes := deps.Media.MaxUploadBytes()
			if err := validators.ParseMultipart(w, r, 1, maxBytes); err != nil {
				responses.WriteError(ctx, deps.Logger, w, err)
				return
			}
			req = auth.RegisterRequest{
				FullName: validators.FormValue(r, "full_name"),
				Username: validators.FormValue(r, "username"),
				Email:    validators.FormValue(r, "email"),
				Password: r.FormValue("password"),
				OTP:      validators.FormValue(r, "otp"),
			}
			if phone := validators.FormValue(r, "phone"); phone != "" {
				req.Phone = &phone
			}
			if err := validators.Validate(&req); err != nil {
				responses.WriteError(ctx, deps.Logger, w, err)
				return
			}
			uploads, err := validators.SpoolFiles(r, "avatar", deps.Media.TempDir, maxBytes, 1, false)
			if err != nil {
				responses.WriteError(ctx, deps.Logger, w, err)
				return
			}
			defer uploads.Cleanup()
			if len(uploads.Files) == 1 {
				req.Avatar = &uploads.Files[0]
			}
		} else if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		resp, err := deps.Service.Register(ctx, req)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		setAuthCookies(w, deps.Cookies, resp.Tokens)
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func Login(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		resp, err := deps.Service.Login(ctx, req)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		setAuthCookies(w, deps.Cookies, resp.Tokens)
		responses.WriteSuccess(w, resp)
	}
}

func LoginWithOTP(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req auth.OTPLoginRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		resp, err := deps.Service.LoginWithOTP(ctx, req)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		setAuthCookies(w, deps.Cookies, resp.Tokens)
		responses.WriteSuccess(w, resp)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates the session. The token comes from the body or, failing that, the cookie.
func Refresh(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req refreshRequest
		if hasBody(r) {
			if err := validators.DecodeJSONBody(w, r, &req); err != nil {
				responses.WriteError(ctx, deps.Logger, w, err)
				return
			}
		}
		token := strings.TrimSpace(req.RefreshToken)
		if token == "" {
			if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token required"))
			return
		}

		resp, err := deps.Service.Refresh(ctx, token)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		setAuthCookies(w, deps.Cookies, resp.Tokens)
		responses.WriteSuccess(w, resp)
	}
}

func Logout(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		userID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		if err := deps.Service.Logout(ctx, userID); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		clearAuthCookies(w, deps.Cookies)
		w.WriteHeader(http.StatusNoContent)
	}
}

type contactRequest struct {
	Contact string `json:"contact" validate:"required"`
}

func ForgotPassword(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req contactRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		result, err := deps.Service.ForgotPassword(ctx, req.Contact)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

func ResetPassword(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req auth.ResetPasswordRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		if err := deps.Service.ResetPassword(ctx, req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ChangePassword(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Service == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		userID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		var req auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		resp, err := deps.Service.ChangePassword(ctx, userID, req)
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}
		setAuthCookies(w, deps.Cookies, resp.Tokens)
		responses.WriteSuccess(w, resp)
	}
}

type otpSendRequest struct {
	Contact string `json:"contact" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
}

type otpVerifyRequest struct {
	Contact string `json:"contact" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// SendOTP issues a code for register, login or forgot.
func SendOTP(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}
		var req otpSendRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		purpose, err := enums.ParseOTPPurpose(req.Purpose)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose"))
			return
		}
		result, err := svc.Send(ctx, req.Contact, purpose)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// VerifyOTP reports whether a code is valid. The code stays usable for the
// register, login or reset call that follows.
func VerifyOTP(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}
		var req otpVerifyRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		purpose, err := enums.ParseOTPPurpose(req.Purpose)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose"))
			return
		}
		if err := svc.Check(ctx, req.Contact, purpose, req.Code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": true})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
