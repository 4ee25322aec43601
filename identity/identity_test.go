package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func Test_UserID_From_Token(t *testing.T) {
	req := require.New(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user_a"})
	signed, err := token.SignedString([]byte("test-secret"))
	req.NoError(err)

	id, err := UserID(signed)
	req.NoError(err)
	req.Equal("user_a", id)
}

func Test_UserID_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := UserID("not.a.token")
	req.Error(err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{})
	signed, err := token.SignedString([]byte("test-secret"))
	req.NoError(err)
	_, err = UserID(signed)
	req.Error(err)
}
