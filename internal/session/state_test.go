package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_IsImmutable(t *testing.T) {
	base := State{}.WithFlash("one")

	withPrincipal := base.WithPrincipal("key")
	assert.False(t, base.Authenticated())
	assert.True(t, withPrincipal.Authenticated())
	assert.Equal(t, "key", withPrincipal.PrincipalKey())

	more := base.WithFlash("two")
	assert.Equal(t, []string{"one"}, base.Flash())
	assert.Equal(t, []string{"one", "two"}, more.Flash())

	out := withPrincipal.WithoutPrincipal()
	assert.True(t, withPrincipal.Authenticated())
	assert.False(t, out.Authenticated())
}

func TestState_TakeReturnToConsumesOnce(t *testing.T) {
	st := State{}.WithReturnTo("/articles/5?edit=true")

	url, st2 := st.TakeReturnTo()
	assert.Equal(t, "/articles/5?edit=true", url)
	assert.Equal(t, "/articles/5?edit=true", st.ReturnTo())

	url, _ = st2.TakeReturnTo()
	assert.Empty(t, url)
}

func TestState_TakeFlash(t *testing.T) {
	st := State{}.WithFlash("User not found")

	msgs, st2 := st.TakeFlash()
	assert.Equal(t, []string{"User not found"}, msgs)
	assert.Empty(t, st2.Flash())
	assert.True(t, st2.IsZero())
}

func TestSignature(t *testing.T) {
	secret := []byte("s3cret")
	signed := sign("abc", secret)

	assert.Equal(t, "abc", unsign(signed, secret))
	assert.Empty(t, unsign(signed, []byte("other")))
	assert.Empty(t, unsign("abc", secret))
	assert.Empty(t, unsign("xyz"+signed[3:], secret))
}
