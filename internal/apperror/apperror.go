// Package apperror holds the portal's error taxonomy. Every operation that can
// fail for a domain reason returns an *Error whose Kind the HTTP layer maps to
// a status code and the uniform {ok:false, error} body.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	InvalidCredentials       Kind = "invalid_credentials"
	WeakPassword             Kind = "weak_password"
	CurrentPasswordIncorrect Kind = "current_password_incorrect"
	TokenInvalid             Kind = "token_invalid"
	TokenExpired             Kind = "token_expired"
	NoPermission             Kind = "no_permission"
	SessionExpired           Kind = "session_expired"
	InvalidEmbed             Kind = "invalid_embed"
	InvalidInput             Kind = "invalid_input"
	NotFound                 Kind = "not_found"
	BackendError             Kind = "backend_error"
)

// User-facing messages. InvalidCredentials must stay identical for every
// login failure.
const (
	MsgInvalidCredentials       = "Email ou senha incorretos"
	MsgWeakPassword             = "Senha deve ter no mínimo 8 caracteres, incluindo maiúsculas, minúsculas, números e caracteres especiais"
	MsgCurrentPasswordIncorrect = "Senha atual incorreta"
	MsgTokenInvalid             = "Token inválido ou expirado."
	MsgTokenExpired             = "Token expirado. Solicite uma nova recuperação de senha."
	MsgNoPermission             = "Você não tem permissão para acessar esta página"
	MsgSessionExpired           = "Sua sessão expirou. Faça login novamente."
	MsgInvalidEmbed             = "Iframe inválido. Não foi possível extrair o Report ID."
	MsgGeneric                  = "Ocorreu um erro. Tente novamente."
)

// Error is the tagged failure value returned by services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, apperror.E(TokenExpired, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// E builds an *Error. An empty message falls back to the kind's default.
func E(kind Kind, msg string) *Error {
	if msg == "" {
		msg = defaultMessage(kind)
	}
	return &Error{Kind: kind, Message: msg}
}

// Backend wraps a data-service failure behind the generic message.
func Backend(err error) *Error {
	return &Error{Kind: BackendError, Message: MsgGeneric, Err: err}
}

// KindOf returns the kind of err, or BackendError for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return BackendError
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgGeneric
}

// HTTPStatus maps a kind to a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidCredentials, SessionExpired:
		return http.StatusUnauthorized
	case NoPermission:
		return http.StatusForbidden
	case WeakPassword, CurrentPasswordIncorrect, TokenInvalid, TokenExpired, InvalidEmbed, InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(kind Kind) string {
	switch kind {
	case InvalidCredentials:
		return MsgInvalidCredentials
	case WeakPassword:
		return MsgWeakPassword
	case CurrentPasswordIncorrect:
		return MsgCurrentPasswordIncorrect
	case TokenInvalid:
		return MsgTokenInvalid
	case TokenExpired:
		return MsgTokenExpired
	case NoPermission:
		return MsgNoPermission
	case SessionExpired:
		return MsgSessionExpired
	case InvalidEmbed:
		return MsgInvalidEmbed
	case NotFound:
		return "Registro não encontrado"
	case InvalidInput:
		return "Preencha todos os campos obrigatórios"
	default:
		return MsgGeneric
	}
}
