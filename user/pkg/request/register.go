package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type Register struct {
	Username string `validate:"required,notblank" json:"username"`
	Email    string `validate:"required,email"    json:"email"`
	Password string `validate:"required,min=8,max=72" json:"password"`
}

func (r Register) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", r.Email).Str("username", r.Username)
}

func (r Register) MarshalJSON() ([]byte, error) {
	r.Password = maskedPassword
	type alias Register
	return json.Marshal(alias(r))
}
