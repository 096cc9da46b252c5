package cashday

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FrozenFields are the financial fields frozen at close time. The integrity
// signature is computed over their canonical serialization; any later change
// to one of them invalidates the signature.
type FrozenFields struct {
	UnitID          uuid.UUID
	Date            time.Time
	OpeningFloat    decimal.Decimal
	CalculatedTotal decimal.Decimal
	ConferredTotal  decimal.Decimal
	ClosedBy        uuid.UUID
	ClosedAt        time.Time
}

// canonical serializes the frozen fields deterministically: pipe-joined,
// dates as yyyy-mm-dd, amounts at two decimal places, timestamps RFC3339Nano UTC.
func (f FrozenFields) canonical() string {
	return strings.Join([]string{
		f.UnitID.String(),
		f.Date.UTC().Format("2006-01-02"),
		f.OpeningFloat.StringFixed(2),
		f.CalculatedTotal.StringFixed(2),
		f.ConferredTotal.StringFixed(2),
		f.ClosedBy.String(),
		f.ClosedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
}

// Signer computes and verifies the tamper-evidence signature of a closing.
// It is a keyed HMAC-SHA256 so a signature cannot be recreated without the
// server-side key after mutating frozen fields directly in the store.
type Signer struct {
	key []byte
}

// NewSigner creates a signer with the given secret key
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign computes the hex-encoded signature over the frozen fields
func (s *Signer) Sign(f FrozenFields) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(f.canonical()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over the closing's currently stored frozen
// fields and compares it to the stored value in constant time. A false result
// means corruption or post-close mutation and must hard-stop the caller.
func (s *Signer) Verify(c *Closing) bool {
	if c.IntegritySignature == "" || c.ClosedBy == nil || c.ClosedAt == nil {
		return false
	}
	expected := s.Sign(c.FrozenFields())
	return hmac.Equal([]byte(expected), []byte(c.IntegritySignature))
}
