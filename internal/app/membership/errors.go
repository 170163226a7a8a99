package membership

import "github.com/dalemusser/grouphub/internal/app/system/apperr"

// Errors returned by the registry. Handlers render them through apperr.
var (
	ErrInvalidEmail   = apperr.E(apperr.Validation, "INVALID_EMAIL", "A valid email address is required.")
	ErrWeakPassword   = apperr.E(apperr.Validation, "WEAK_PASSWORD", "Password must be at least 8 characters.")
	ErrNameRequired   = apperr.E(apperr.Validation, "NAME_REQUIRED", "Full name is required.")
	ErrGroupRequired  = apperr.E(apperr.Validation, "GROUP_NAME_REQUIRED", "Group name and join secret are required.")
	ErrBadStatus      = apperr.E(apperr.Validation, "INVALID_STATUS", "Status must be active or inactive.")
	ErrEmailTaken     = apperr.E(apperr.Conflict, "EMAIL_TAKEN", "An account with this email already exists.")
	ErrTenantNotFound = apperr.E(apperr.NotFound, "TENANT_NOT_FOUND", "Group not found.")
	ErrBadJoinSecret  = apperr.E(apperr.Validation, "INVALID_JOIN_SECRET", "The group secret is incorrect.")
	ErrAlreadyMember  = apperr.E(apperr.Conflict, "ALREADY_MEMBER", "You are already a member of this group. Please log in.")

	ErrBadCredentials = apperr.E(apperr.Auth, "INVALID_CREDENTIALS", "Invalid email or password.")
	ErrUserNotFound   = apperr.E(apperr.NotFound, "USER_NOT_FOUND", "User not found.")
	ErrNotVerified    = apperr.E(apperr.Permission, "NOT_VERIFIED", "Verify your email before continuing.")
	ErrNotAMember     = apperr.E(apperr.Permission, "NOT_A_MEMBER", "You are not a member of this group.")
	ErrMemberInactive = apperr.E(apperr.Permission, "MEMBER_INACTIVE", "Your membership in this group is inactive.")
	ErrMemberNotFound = apperr.E(apperr.NotFound, "MEMBER_NOT_FOUND", "No matching members in this group.")
	ErrCreatorLocked  = apperr.E(apperr.Validation, "CREATOR_PROTECTED", "The group creator cannot be removed or deactivated.")

	ErrOTPNotFound        = apperr.E(apperr.NotFound, "OTP_NOT_FOUND", "No verification code is pending. Request a new one.")
	ErrOTPExpired         = apperr.E(apperr.Validation, "OTP_EXPIRED", "The verification code has expired. Request a new one.")
	ErrOTPInvalid         = apperr.E(apperr.Validation, "OTP_INVALID", "The verification code is incorrect.")
	ErrOTPTooManyAttempts = apperr.E(apperr.TooMany, "OTP_TOO_MANY_ATTEMPTS", "Too many incorrect codes. Request a new one.")
)
