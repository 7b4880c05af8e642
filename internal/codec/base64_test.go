package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase64RoundTrip(t *testing.T) {
	encoded := Base64Encode("hello world")
	decoded, err := Base64Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "hello world", decoded)
}

func TestBase64DecodeTrimsQuotesFromDecodedPlaintext(t *testing.T) {
	encoded := Base64Encode(`"quoted"`)
	decoded, err := Base64Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "quoted", decoded)
}

func TestBase64DecodeTrimsRepeatedQuotes(t *testing.T) {
	encoded := Base64Encode(`""double-quoted""`)
	decoded, err := Base64Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "double-quoted", decoded)
}

func TestBase64DecodeRejectsInvalidInput(t *testing.T) {
	_, err := Base64Decode("not base64!!")
	require.Error(t, err)
}
