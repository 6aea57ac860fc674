package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/pkg/crypto"
)

const (
	qrPrefix        = "VCH-"
	shortCodeLength = 8
	staticPrefix    = "ST-"
	staticLength    = 10
)

// CodeGenerator produces the code strings attached to a voucher at creation time.
type CodeGenerator interface {
	QRCode() (string, error)
	ShortCode() (string, error)
	StaticCode() (string, error)
}

type randomCodeGenerator struct{}

// NewCodeGenerator returns the default generator: a uuid QR payload, an
// 8-character short code and a prefixed static code.
func NewCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

func (randomCodeGenerator) QRCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate qr payload: %w", err)
	}
	return qrPrefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}

func (randomCodeGenerator) ShortCode() (string, error) {
	code := shortuuid.NewWithAlphabet(crypto.CodeAlphabet)
	if len(code) < shortCodeLength {
		return "", fmt.Errorf("generate short code: got %d characters", len(code))
	}
	return code[:shortCodeLength], nil
}

func (randomCodeGenerator) StaticCode() (string, error) {
	code, err := crypto.GenerateCode(staticLength)
	if err != nil {
		return "", fmt.Errorf("generate static code: %w", err)
	}
	return staticPrefix + code, nil
}

// NormalizeCode canonicalizes a typed short or static code.
func NormalizeCode(raw string) string {
	return model.NormalizeCode(raw)
}
