package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

const maskedPassword = "***"

type Login struct {
	Email    string `validate:"required,email"   json:"email"`
	Password string `validate:"required,max=72" json:"password"`
}

func (l Login) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", l.Email).Str("password", maskedPassword)
}

// MarshalJSON keeps the plain password out of logged request bodies.
func (l Login) MarshalJSON() ([]byte, error) {
	l.Password = maskedPassword
	type alias Login
	return json.Marshal(alias(l))
}
