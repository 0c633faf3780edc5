package auth

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 200

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTP issues and checks authenticator-app secrets.
type TOTP struct {
	issuer string
	now    func() time.Time
}

func NewTOTP(issuer string) *TOTP {
	return &TOTP{issuer: issuer, now: time.Now}
}

// Provisioning is what a user needs to enrol an authenticator app.
type Provisioning struct {
	Secret string
	URL    string
	QRCode string // PNG data URI
}

// NewSecret generates a fresh base32 secret for account.
func (t *TOTP) NewSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: t.issuer, AccountName: account})
	if err != nil {
		return "", fmt.Errorf("totp generate: %w", err)
	}
	return key.Secret(), nil
}

// Provision rebuilds the enrolment data for a stored secret.
func (t *TOTP) Provision(account, secret string) (*Provisioning, error) {
	raw, err := b32.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return nil, fmt.Errorf("totp secret: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: t.issuer, AccountName: account, Secret: raw})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("totp qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("totp qr: %w", err)
	}

	return &Provisioning{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate checks a six digit code, tolerating one step of clock skew.
func (t *TOTP) Validate(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
