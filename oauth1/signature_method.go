package oauth1

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/pkg/errors"
)

// Signature method names as sent in oauth_signature_method.
const (
	MethodHMACSHA1  = "HMAC-SHA1"
	MethodPlaintext = "PLAINTEXT"
	MethodRSASHA1   = "RSA-SHA1"
)

// SignatureMethod computes oauth_signature from a signature base string and
// the signing key "enc(clientSecret)&enc(tokenSecret)".
type SignatureMethod interface {
	// Name returns the oauth_signature_method value
	Name() string

	// Sign returns the unencoded signature
	Sign(baseString, key string) (string, error)
}

// HMACSHA1 implements the HMAC-SHA1 method of RFC 5849 section 3.4.2.
type HMACSHA1 struct{}

func (HMACSHA1) Name() string { return MethodHMACSHA1 }

func (HMACSHA1) Sign(baseString, key string) (string, error) {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Plaintext implements the PLAINTEXT method. It must only be used over TLS.
type Plaintext struct{}

func (Plaintext) Name() string { return MethodPlaintext }

func (Plaintext) Sign(_ string, key string) (string, error) {
	return key, nil
}

// RSASHA1 implements the RSA-SHA1 method. The signing key string is ignored;
// the client's private key signs the base string.
type RSASHA1 struct {
	privateKey *rsa.PrivateKey
}

// NewRSASHA1 creates an RSA-SHA1 method for the given private key
func NewRSASHA1(key *rsa.PrivateKey) *RSASHA1 {
	return &RSASHA1{privateKey: key}
}

// NewRSASHA1FromPEM parses a PKCS#1 or PKCS#8 RSA private key.
func NewRSASHA1FromPEM(pemData []byte) (*RSASHA1, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("[NewRSASHA1FromPEM] no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return NewRSASHA1(key), nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "[NewRSASHA1FromPEM] failed to parse private key")
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("[NewRSASHA1FromPEM] unsupported key type %T", parsed)
	}
	return NewRSASHA1(key), nil
}

func (*RSASHA1) Name() string { return MethodRSASHA1 }

func (m *RSASHA1) Sign(baseString, _ string) (string, error) {
	if m.privateKey == nil {
		return "", errors.New("RSA-SHA1 requires a private key")
	}
	digest := sha1.Sum([]byte(baseString))
	sig, err := rsa.SignPKCS1v15(rand.Reader, m.privateKey, crypto.SHA1, digest[:])
	if err != nil {
		return "", errors.Wrap(err, "failed to sign with RSA-SHA1")
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignatureMethodByName returns the keyless signature method for name.
// RSA-SHA1 needs key material and is built with NewRSASHA1FromPEM instead.
func SignatureMethodByName(name string) (SignatureMethod, error) {
	switch name {
	case "", MethodHMACSHA1:
		return HMACSHA1{}, nil
	case MethodPlaintext:
		return Plaintext{}, nil
	case MethodRSASHA1:
		return nil, fmt.Errorf("signature method %s requires a private key", name)
	default:
		return nil, fmt.Errorf("unsupported signature method: %s", name)
	}
}
