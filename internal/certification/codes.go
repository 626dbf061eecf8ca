package certification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CodePrefix starts every verification code.
const CodePrefix = "SPBE"

// GenerateVerificationCode returns "SPBE-<time>-<random>": the current Unix
// milliseconds and five random characters, both base36 upper case. Codes are
// practically unique; the store rejects a collision.
func GenerateVerificationCode() (string, error) {
	suffix, err := randomBase36(5)
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return CodePrefix + "-" + millis36(time.Now()) + "-" + suffix, nil
}

// generateCertificateNumber returns the printed serial "CERT-<millis>-<random>".
func generateCertificateNumber(now time.Time) (string, error) {
	suffix, err := randomBase36(9)
	if err != nil {
		return "", fmt.Errorf("generating certificate number: %w", err)
	}
	return "CERT-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix, nil
}

func millis36(t time.Time) string {
	return strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
}

func randomBase36(n int) (string, error) {
	limit := big.NewInt(int64(len(base36)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36[i.Int64()])
	}
	return b.String(), nil
}
