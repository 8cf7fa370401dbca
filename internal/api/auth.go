package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"Warpgate/internal/ident"
)

const (
	// HeaderSender carries the hex ed25519 public key of the caller.
	HeaderSender = "X-Sender"

	// HeaderSignature carries the hex ed25519 signature of SigningMessage.
	HeaderSignature = "X-Signature"

	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20
)

// errBadSignature is returned when a signed request fails verification.
var errBadSignature = errors.New("bad signature")

// SigningMessage is the byte string a caller signs: "METHOD PATH\n" + body.
func SigningMessage(method, path string, body []byte) []byte {
	msg := make([]byte, 0, len(method)+len(path)+2+len(body))
	msg = append(msg, method...)
	msg = append(msg, ' ')
	msg = append(msg, path...)
	msg = append(msg, '\n')

	return append(msg, body...)
}

// authenticate reads the body and verifies the sender signature.
// It returns the caller address derived from the sender key.
func authenticate(r *http.Request) (ident.Address, []byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return ident.Address{}, nil, fmt.Errorf("read body:\n%w", err)
	}

	pub, err := hex.DecodeString(r.Header.Get(HeaderSender))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ident.Address{}, nil, fmt.Errorf("invalid %s header:\n%w", HeaderSender, errBadSignature)
	}

	sig, err := hex.DecodeString(r.Header.Get(HeaderSignature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ident.Address{}, nil, fmt.Errorf("invalid %s header:\n%w", HeaderSignature, errBadSignature)
	}

	if !ed25519.Verify(pub, SigningMessage(r.Method, r.URL.Path, body), sig) {
		return ident.Address{}, nil, errBadSignature
	}

	return ident.FromPubkey(pub), body, nil
}
