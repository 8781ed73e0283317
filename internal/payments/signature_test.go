package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignMatchesGatewayFormat(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order_1|pay_1"))
	expected := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t, expected, Sign("secret", "order_1", "pay_1"))
	require.Len(t, expected, 64)
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")

	require.True(t, VerifySignature("secret", "order_1", "pay_1", sig))
	require.True(t, VerifySignature("secret", "order_1", "pay_1", strings.ToUpper(sig)))
	require.True(t, VerifySignature("secret", "order_1", "pay_1", " "+sig+"\n"))
	require.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	require.False(t, VerifySignature("secret", "order_2", "pay_1", sig))
	require.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	require.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
	require.False(t, VerifySignature("", "order_1", "pay_1", Sign("", "order_1", "pay_1")))
}

func TestVerifySignatureSeparatesFields(t *testing.T) {
	sig := Sign("secret", "order_1|pay", "1")
	require.True(t, VerifySignature("secret", "order_1|pay", "1", sig))
	require.False(t, VerifySignature("secret", "order_1", "pay", sig))
}
