package request

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alturino/storefront/internal/errors"
)

func TestOwner(t *testing.T) {
	tests := []struct {
		name    string
		owner   Owner
		isUser  bool
		wantErr bool
	}{
		{name: "user", owner: Owner{UserID: "u1"}, isUser: true},
		{name: "session", owner: Owner{SessionID: "s1"}},
		{name: "both prefers user", owner: Owner{UserID: "u1", SessionID: "s1"}, isUser: true},
		{name: "blank", owner: Owner{UserID: " ", SessionID: ""}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isUser, tt.owner.IsUser())
			err := tt.owner.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrMissingOwner)
				return
			}
			assert.NoError(t, err)
		})
	}
}
