package cashday

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixaops/backend/internal/domain/shared"
)

var testDate = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

func newTestSigner() *Signer {
	return NewSigner("test-signing-key")
}

func openTestClosing(t *testing.T) *Closing {
	t.Helper()
	c, err := NewClosing(uuid.New(), uuid.New(), testDate, decimal.NewFromFloat(200.00), uuid.New(), "morning shift")
	require.NoError(t, err)
	return c
}

func closeTestClosing(t *testing.T, c *Closing, calculated, conferred float64) {
	t.Helper()
	err := c.Close(decimal.NewFromFloat(calculated), decimal.NewFromFloat(conferred), "end of day", uuid.New(), newTestSigner())
	require.NoError(t, err)
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestNewClosing(t *testing.T) {
	t.Run("opens the day with calculated total equal to the opening float", func(t *testing.T) {
		c := openTestClosing(t)

		assert.Equal(t, ClosingStatusOpen, c.Status)
		assert.True(t, c.CalculatedTotal.Equal(decimal.NewFromFloat(200.00)))
		assert.Empty(t, c.IntegritySignature)
		assert.Nil(t, c.ClosedAt)
		assert.Len(t, c.GetDomainEvents(), 1)
	})

	t.Run("normalizes the date to a UTC calendar day", func(t *testing.T) {
		loc := time.FixedZone("BRT", -3*3600)
		c, err := NewClosing(uuid.New(), uuid.New(), time.Date(2026, 2, 20, 22, 15, 0, 0, loc), decimal.Zero, uuid.New(), "")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC), c.Date)
	})

	t.Run("rejects a negative opening float", func(t *testing.T) {
		_, err := NewClosing(uuid.New(), uuid.New(), testDate, decimal.NewFromFloat(-1), uuid.New(), "")
		assert.Equal(t, "INVALID_AMOUNT", domainCode(t, err))
	})

	t.Run("rejects a missing unit", func(t *testing.T) {
		_, err := NewClosing(uuid.New(), uuid.Nil, testDate, decimal.Zero, uuid.New(), "")
		assert.Equal(t, "INVALID_UNIT", domainCode(t, err))
	})
}

func TestClosingClose(t *testing.T) {
	t.Run("freezes totals, difference and signature", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		assert.Equal(t, ClosingStatusClosed, c.Status)
		assert.True(t, c.Difference.IsZero())
		assert.NotEmpty(t, c.IntegritySignature)
		require.NotNil(t, c.ClosedAt)
		assert.True(t, newTestSigner().Verify(c))
		require.Len(t, c.Trail, 1)
		assert.Equal(t, TrailActionClosed, c.Trail[0].Action)
		assert.True(t, c.Trail[0].OpeningFloat.Equal(c.OpeningFloat))
	})

	t.Run("signature survives microsecond timestamp storage", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		// timestamptz columns keep microseconds; the stamp must already be
		// at that precision or verification breaks after the first read.
		truncated := c.ClosedAt.Truncate(time.Microsecond)
		assert.True(t, c.ClosedAt.Equal(truncated))

		c.ClosedAt = &truncated
		assert.True(t, newTestSigner().Verify(c))
	})

	t.Run("records overage with a positive difference", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 600.00, 612.50)
		assert.True(t, c.Difference.Equal(decimal.NewFromFloat(12.50)))
	})

	t.Run("records shortage with a negative difference", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 600.00, 580.00)
		assert.True(t, c.Difference.Equal(decimal.NewFromFloat(-20.00)))
	})

	t.Run("fails when the day is not open", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 200, 200)

		err := c.Close(decimal.NewFromInt(200), decimal.NewFromInt(200), "", uuid.New(), newTestSigner())
		assert.Equal(t, "NOTHING_TO_CLOSE", domainCode(t, err))
	})
}

func TestClosingConfer(t *testing.T) {
	t.Run("approval confirms the day and recomputes the difference", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		auditor := uuid.New()
		err := c.Confer(true, decimal.NewFromFloat(650.50), decimal.NewFromFloat(650.50), "ok", auditor, newTestSigner())
		require.NoError(t, err)

		assert.Equal(t, ClosingStatusConfirmed, c.Status)
		assert.True(t, c.Difference.IsZero())
		require.NotNil(t, c.ConfirmedBy)
		assert.Equal(t, auditor, *c.ConfirmedBy)
	})

	t.Run("rejection reopens the day and preserves stamps in the trail", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 640.00)
		priorSignature := c.IntegritySignature
		priorClosedBy := *c.ClosedBy

		err := c.Confer(false, decimal.Zero, decimal.NewFromFloat(650.50), "counted cash does not match", uuid.New(), newTestSigner())
		require.NoError(t, err)

		assert.Equal(t, ClosingStatusOpen, c.Status)
		assert.Nil(t, c.ClosedAt)
		assert.Empty(t, c.IntegritySignature)
		assert.Equal(t, "counted cash does not match", c.ReopenReason)

		require.Len(t, c.Trail, 2)
		rejected := c.Trail[1]
		assert.Equal(t, TrailActionRejected, rejected.Action)
		assert.Equal(t, priorSignature, rejected.Signature)
		require.NotNil(t, rejected.ClosedBy)
		assert.Equal(t, priorClosedBy, *rejected.ClosedBy)
	})

	t.Run("rejection requires a note", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 640.00)

		err := c.Confer(false, decimal.Zero, decimal.NewFromFloat(650.50), "", uuid.New(), newTestSigner())
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})

	t.Run("detects a tampered frozen field", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		c.CalculatedTotal = c.CalculatedTotal.Add(decimal.NewFromInt(100))

		err := c.Confer(true, decimal.NewFromFloat(650.50), c.CalculatedTotal, "", uuid.New(), newTestSigner())
		assert.Equal(t, "INTEGRITY_VIOLATION", domainCode(t, err))
	})

	t.Run("detects divergence from the freshly recomputed total", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		err := c.Confer(true, decimal.NewFromFloat(650.50), decimal.NewFromFloat(700.00), "", uuid.New(), newTestSigner())
		assert.Equal(t, "INTEGRITY_VIOLATION", domainCode(t, err))
	})

	t.Run("fails for a day that is not closed", func(t *testing.T) {
		c := openTestClosing(t)
		err := c.Confer(true, decimal.Zero, c.CalculatedTotal, "", uuid.New(), newTestSigner())
		assert.Equal(t, "STATE_CONFLICT", domainCode(t, err))
	})
}

func TestClosingReopen(t *testing.T) {
	t.Run("reopens a confirmed day and retains confirm stamps in the trail", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)
		require.NoError(t, c.Confer(true, decimal.NewFromFloat(650.50), decimal.NewFromFloat(650.50), "", uuid.New(), newTestSigner()))
		confirmedBy := *c.ConfirmedBy

		err := c.Reopen("till recount ordered", uuid.New(), newTestSigner())
		require.NoError(t, err)

		assert.Equal(t, ClosingStatusOpen, c.Status)
		assert.Nil(t, c.ConfirmedAt)
		assert.Equal(t, "till recount ordered", c.ReopenReason)

		reopened := c.Trail[len(c.Trail)-1]
		assert.Equal(t, TrailActionReopened, reopened.Action)
		require.NotNil(t, reopened.ConfirmedBy)
		assert.Equal(t, confirmedBy, *reopened.ConfirmedBy)
	})

	t.Run("requires a reason", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)

		err := c.Reopen("", uuid.New(), newTestSigner())
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})

	t.Run("refuses a cancelled day", func(t *testing.T) {
		c := openTestClosing(t)
		require.NoError(t, c.Cancel("unit flooded", uuid.New()))

		err := c.Reopen("mistake", uuid.New(), newTestSigner())
		assert.Equal(t, "CANNOT_REOPEN_CANCELLED", domainCode(t, err))
	})

	t.Run("refuses when the signature no longer verifies", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)
		c.ConferredTotal = decimal.NewFromInt(999)

		err := c.Reopen("recount", uuid.New(), newTestSigner())
		assert.Equal(t, "INTEGRITY_VIOLATION", domainCode(t, err))
	})
}

func TestClosingCancel(t *testing.T) {
	t.Run("cancels an open day", func(t *testing.T) {
		c := openTestClosing(t)
		require.NoError(t, c.Cancel("duplicate opening", uuid.New()))
		assert.Equal(t, ClosingStatusCancelled, c.Status)
		assert.Equal(t, "duplicate opening", c.CancelReason)
	})

	t.Run("cancels a closed day", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)
		require.NoError(t, c.Cancel("wrong unit", uuid.New()))
		assert.Equal(t, ClosingStatusCancelled, c.Status)
	})

	t.Run("refuses a confirmed day", func(t *testing.T) {
		c := openTestClosing(t)
		closeTestClosing(t, c, 650.50, 650.50)
		require.NoError(t, c.Confer(true, decimal.NewFromFloat(650.50), decimal.NewFromFloat(650.50), "", uuid.New(), newTestSigner()))

		err := c.Cancel("too late", uuid.New())
		assert.Equal(t, "STATE_CONFLICT", domainCode(t, err))
	})

	t.Run("requires a reason", func(t *testing.T) {
		c := openTestClosing(t)
		err := c.Cancel("", uuid.New())
		assert.Equal(t, "VALIDATION_ERROR", domainCode(t, err))
	})
}

// Full lifecycle with the hand-computed reconciliation example:
// opening float 200.00, entries 150.00 and 300.50, conferred 650.50.
func TestClosingLifecycle(t *testing.T) {
	tenantID := uuid.New()
	unitID := uuid.New()
	operator := uuid.New()

	c, err := NewClosing(tenantID, unitID, testDate, decimal.NewFromFloat(200.00), operator, "")
	require.NoError(t, err)

	e1, err := NewRevenueEntry(tenantID, unitID, c.ID, decimal.NewFromFloat(150.00),
		testDate.Add(9*time.Hour), testDate.Add(9*time.Hour+5*time.Minute), uuid.New(), OriginManual)
	require.NoError(t, err)
	e2, err := NewRevenueEntry(tenantID, unitID, c.ID, decimal.NewFromFloat(300.50),
		testDate.Add(9*time.Hour+10*time.Minute), testDate.Add(9*time.Hour+15*time.Minute), uuid.New(), OriginManual)
	require.NoError(t, err)

	calculated := CalculateTotal(c.OpeningFloat, []RevenueEntry{*e1, *e2})
	assert.True(t, calculated.Equal(decimal.NewFromFloat(650.50)))

	require.NoError(t, c.Close(calculated, decimal.NewFromFloat(650.50), "", operator, newTestSigner()))
	assert.Equal(t, ClosingStatusClosed, c.Status)
	assert.True(t, c.Difference.IsZero())

	require.NoError(t, c.Confer(true, decimal.NewFromFloat(650.50), calculated, "", uuid.New(), newTestSigner()))
	assert.Equal(t, ClosingStatusConfirmed, c.Status)
	assert.True(t, c.Difference.IsZero())
}
