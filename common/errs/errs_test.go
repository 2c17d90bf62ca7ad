package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	base := E(KindAuthExpired, "hosted.broadcast", errors.New("token revoked"))
	wrapped := fmt.Errorf("dispatch alice: %w", base)

	require.Equal(t, KindAuthExpired, KindOf(wrapped))
	require.True(t, errors.Is(wrapped, ErrAuthExpired))
	require.False(t, errors.Is(wrapped, ErrBroadcastRejected))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestErrorUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("missing_authority")
	err := E(KindBroadcastRejected, "local", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "local: broadcast_rejected: missing_authority", err.Error())
}
