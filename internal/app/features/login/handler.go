// internal/app/features/login/handler.go
package login

import (
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/membership"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/ratelimit"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the unauthenticated account endpoints under /public.
type Handler struct {
	Registry *membership.Registry
	Accounts *ratelimit.AccountLimiter // per-email login attempts; nil disables
	AuditLog *auditlog.Logger
	ErrLog   *apierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(reg *membership.Registry, accounts *ratelimit.AccountLimiter, audit *auditlog.Logger, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		Accounts: accounts,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// actionRequired is the 202 body: the client must do something else next.
type actionRequired struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

const codeVerifyEmail = "VERIFY_EMAIL"

type createGroupRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Phone            string `json:"phone"`
	Gender           string `json:"gender"`
	GroupName        string `json:"group_name"`
	GroupDescription string `json:"group_description"`
	JoinSecret       string `json:"join_secret"`
}

type createGroupResponse struct {
	actionRequired
	membership.CreateGroupResult
}

// CreateGroup handles POST /public/create-group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create-group", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	res, err := h.Registry.CreateGroup(ctx, membership.CreateGroupInput{
		Owner: membership.Profile{
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Gender:   req.Gender,
		},
		Group: membership.GroupInfo{
			Name:        req.GroupName,
			Description: req.GroupDescription,
			JoinSecret:  req.JoinSecret,
		},
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	httpjson.Write(w, http.StatusCreated, createGroupResponse{
		actionRequired: actionRequired{
			Message: "Group created. Enter the verification code sent to your email.",
			Code:    codeVerifyEmail,
		},
		CreateGroupResult: res,
	})
}

type joinGroupRequest struct {
	JoinCode   string `json:"join_code"`
	JoinSecret string `json:"join_secret"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Gender     string `json:"gender"`
}

type joinGroupResponse struct {
	actionRequired
	membership.JoinResult
}

// JoinGroup handles POST /public/join-group.
//
// A brand-new account answers 202 VERIFY_EMAIL, an existing account that
// joined answers 200, and an existing member answers 202 ALREADY_MEMBER.
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode join-group", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	res, err := h.Registry.JoinGroup(ctx, membership.JoinInput{
		JoinCode:   req.JoinCode,
		JoinSecret: req.JoinSecret,
		Applicant: membership.Profile{
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Gender:   req.Gender,
		},
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	resp := joinGroupResponse{JoinResult: res}
	status := http.StatusAccepted
	switch res.Outcome {
	case membership.JoinedNewUser:
		resp.Message = "Joined " + res.GroupName + ". Enter the verification code sent to your email."
		resp.Code = codeVerifyEmail
	case membership.JoinedExisting:
		status = http.StatusOK
		resp.Message = "Joined " + res.GroupName + ". Log in to continue."
		resp.Code = "JOINED"
	default:
		resp.Message = "You are already a member of " + res.GroupName + ". Log in to continue."
		resp.Code = membership.ErrAlreadyMember.Code
	}
	httpjson.Write(w, status, resp)
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ConfirmOTP handles POST /public/confirm-otp and answers with a token.
func (h *Handler) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode confirm-otp", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	tok, err := h.Registry.ConfirmOTP(ctx, req.Email, req.Code)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, tok)
}

type resendRequest struct {
	Email string `json:"email"`
}

// ResendOTP handles POST /public/resend-otp. It always answers 202 so the
// endpoint cannot be used to discover accounts.
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode resend-otp", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	if err := h.Registry.ResendOTP(ctx, req.Email); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, actionRequired{
		Message: "If this account is awaiting verification, a new code has been sent.",
		Code:    codeVerifyEmail,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /public/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login", err, "Invalid request body.")
		return
	}

	if !h.Accounts.Allow(req.Email) {
		h.AuditLog.LoginRateLimited(r.Context(), req.Email)
		httpjson.Message(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many login attempts. Please wait a few minutes and try again.")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	res, err := h.Registry.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Accounts.Reset(req.Email)

	if res.NeedsVerification {
		httpjson.Write(w, http.StatusAccepted, actionRequired{
			Message: "Your email is not verified yet. Enter the code we just sent.",
			Code:    codeVerifyEmail,
		})
		return
	}
	httpjson.Write(w, http.StatusOK, res.Token)
}
