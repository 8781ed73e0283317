package invoices

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

const numberSuffixLen = 6

var numberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewInvoiceNumber returns INV-<yyyymmddHHMMSS>-<6 base32 chars>.
func NewInvoiceNumber(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	suffix := numberEncoding.EncodeToString(buf)[:numberSuffixLen]
	return fmt.Sprintf("INV-%s-%s", now.UTC().Format("20060102150405"), suffix), nil
}
