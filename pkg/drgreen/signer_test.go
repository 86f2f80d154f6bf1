package drgreen

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/stretchr/testify/require"
)

func expectedSignature(key, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignIsDeterministic(t *testing.T) {
	signer, err := NewSigner("api-key", "plain-secret", KeyEncodingRaw)
	require.NoError(t, err)

	payloads := [][]byte{
		[]byte(""),
		[]byte(`{"clientId":"c-1"}`),
		[]byte("countryCode=ZAF&take=10"),
	}
	for _, payload := range payloads {
		first, err := signer.Sign(payload)
		require.NoError(t, err)
		second, err := signer.Sign(payload)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, expectedSignature([]byte("plain-secret"), payload), first)
	}
}

func TestSignChangesWithAnyPayloadMutation(t *testing.T) {
	signer, err := NewSigner("api-key", "plain-secret", KeyEncodingRaw)
	require.NoError(t, err)

	base := []byte(`{"items":[{"strainId":"s-1","quantity":1}]}`)
	baseSig, err := signer.Sign(base)
	require.NoError(t, err)

	seen := map[string]struct{}{baseSig: {}}
	for i := range base {
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0x01
		sig, err := signer.Sign(mutated)
		require.NoError(t, err)
		_, dup := seen[sig]
		require.False(t, dup, "mutation at byte %d produced a known signature", i)
		seen[sig] = struct{}{}
	}

	extended, err := signer.Sign(append(append([]byte(nil), base...), ' '))
	require.NoError(t, err)
	require.NotEqual(t, baseSig, extended)
}

func TestAutoEncodingDecodesBase64Keys(t *testing.T) {
	raw := []byte("super-secret-signing-key")
	encoded := base64.StdEncoding.EncodeToString(raw)

	auto, err := NewSigner("api-key", encoded, KeyEncodingAuto)
	require.NoError(t, err)
	literal, err := NewSigner("api-key", string(raw), KeyEncodingRaw)
	require.NoError(t, err)

	payload := []byte("countryCode=ZAF")
	autoSig, err := auto.Sign(payload)
	require.NoError(t, err)
	literalSig, err := literal.Sign(payload)
	require.NoError(t, err)

	require.Equal(t, literalSig, autoSig)
	require.Equal(t, expectedSignature(raw, payload), autoSig)
}

func TestAutoEncodingKeepsNonBase64KeysLiteral(t *testing.T) {
	for _, key := range []string{"not base64!", "abc", "c2VjcmV0"[:7]} {
		signer, err := NewSigner("api-key", key, KeyEncodingAuto)
		require.NoError(t, err)
		sig, err := signer.Sign([]byte("x"))
		require.NoError(t, err)
		require.Equal(t, expectedSignature([]byte(key), []byte("x")), sig, key)
	}
}

func TestForcedBase64RejectsMalformedKey(t *testing.T) {
	_, err := NewSigner("api-key", "%%%not-base64%%%", KeyEncodingBase64)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))
}

func TestMissingKeyMaterialIsConfigurationError(t *testing.T) {
	_, err := NewSigner("api-key", "   ", KeyEncodingAuto)
	require.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))

	_, err = NewSigner("", "secret", KeyEncodingAuto)
	require.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))

	var nilSigner *Signer
	_, err = nilSigner.Sign([]byte("x"))
	require.Equal(t, pkgerrors.CodeConfiguration, pkgerrors.CodeOf(err))
}

func TestHeadersCarryAPIKeyAndSignature(t *testing.T) {
	signer, err := NewSigner("api-key", "plain-secret", KeyEncodingRaw)
	require.NoError(t, err)

	headers, err := signer.Headers([]byte("take=10"))
	require.NoError(t, err)
	require.Equal(t, "api-key", headers.Get(HeaderAPIKey))
	require.Equal(t, expectedSignature([]byte("plain-secret"), []byte("take=10")), headers.Get(HeaderSignature))
}

func TestCanonicalQuerySortsKeys(t *testing.T) {
	values := url.Values{}
	values.Set("take", "10")
	values.Set("countryCode", "ZAF")
	values.Set("page", "1")

	require.Equal(t, "countryCode=ZAF&page=1&take=10", CanonicalQuery(values))
	require.Equal(t, "", CanonicalQuery(nil))
}

func TestCanonicalBodyIsCompact(t *testing.T) {
	got, err := CanonicalBody(json.RawMessage("{\n  \"b\": 1,\n  \"a\": [1, 2]\n}"))
	require.NoError(t, err)
	require.Equal(t, `{"b":1,"a":[1,2]}`, string(got))

	got, err = CanonicalBody(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	require.Equal(t, `{"a":"x","b":1}`, string(got))

	got, err = CanonicalBody(nil)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = CanonicalBody(json.RawMessage("{broken"))
	require.Error(t, err)
}

func ExampleSigner_Sign() {
	signer, _ := NewSigner("api-key", "c2lnbmluZy1rZXk=", KeyEncodingAuto)
	sig, _ := signer.Sign([]byte(`{"clientId":"c-1"}`))
	fmt.Println(len(sig))
	// Output: 44
}
