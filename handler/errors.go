package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	scopeAuth "github.com/MrEthical07/scopeAuth"
)

const (
	detailInvalidCredentials = "Incorrect username or password"
	detailTokenMissing       = "Bearer token is missing"
	detailTokenIncorrect     = "Input bearer token is incorrect"
	detailTokenExpired       = "Bearer token has expired"
	detailScopesMissing      = "corresponding scopes to execute this operation are missing"
	detailUserMissing        = "user does not exist"
	detailUnavailable        = "authentication backend unavailable"
	detailRateLimited        = "too many failed login attempts"
	detailPasswordPolicy     = "password does not satisfy the password policy"
	detailInternal           = "internal server error"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Status maps an engine error to its HTTP status code.
func Status(err error) int {
	switch scopeAuth.KindOf(err) {
	case scopeAuth.KindInvalidCredentials,
		scopeAuth.KindMalformedHash,
		scopeAuth.KindTokenMissing,
		scopeAuth.KindTokenMalformed,
		scopeAuth.KindTokenExpired,
		scopeAuth.KindInsufficientScope,
		scopeAuth.KindPrincipalNotFound:
		return http.StatusUnauthorized
	case scopeAuth.KindRateLimited:
		return http.StatusTooManyRequests
	case scopeAuth.KindDirectoryUnavailable:
		return http.StatusServiceUnavailable
	case scopeAuth.KindPasswordPolicy:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the response for an engine error. The body never
// contains err's text; only the classification leaks to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := Status(err)
	detail := detailInternal

	switch scopeAuth.KindOf(err) {
	case scopeAuth.KindInvalidCredentials, scopeAuth.KindMalformedHash:
		detail = detailInvalidCredentials
	case scopeAuth.KindTokenMissing:
		detail = detailTokenMissing
	case scopeAuth.KindTokenMalformed:
		detail = detailTokenIncorrect
	case scopeAuth.KindTokenExpired:
		detail = detailTokenExpired
	case scopeAuth.KindInsufficientScope:
		detail = detailScopesMissing
	case scopeAuth.KindPrincipalNotFound:
		detail = detailUserMissing
	case scopeAuth.KindDirectoryUnavailable:
		detail = detailUnavailable
	case scopeAuth.KindRateLimited:
		detail = detailRateLimited
	case scopeAuth.KindPasswordPolicy:
		detail = detailPasswordPolicy
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", challenge(err))
	}
	writeDetail(w, status, detail)
}

func challenge(err error) string {
	if missing, ok := scopeAuth.MissingScope(err); ok {
		return `Bearer scope=` + strconv.Quote(missing)
	}
	return "Bearer"
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// WriteJSON writes body with status and the no-store headers every
// authentication response carries.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
