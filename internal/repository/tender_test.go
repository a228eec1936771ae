package repository

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiken/licitaciones/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func line(sku string, qty int, price string) model.OrderLine {
	return model.OrderLine{SKU: sku, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func newTender(id string, lines ...model.OrderLine) model.Tender {
	return model.Tender{
		ID:           id,
		ClientID:     1,
		CreationDate: date("2025-03-01"),
		DeliveryDate: date("2025-03-15"),
		Lines:        lines,
	}
}

func newTestRepo(db *fakeDB) *PostgresRepository {
	r := newRepository(db)
	r.retryDelays = nil
	return r
}

func TestSaveTender_CreateInsertsHeaderAndLines(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	err := repo.SaveTender(context.Background(), model.SaveModeCreate,
		newTender("LIC-1", line("A", 2, "10"), line("B", 1, "5")))
	require.NoError(t, err)

	require.Contains(t, db.committed.tenders, "LIC-1")
	assert.Equal(t, int64(1), db.committed.tenders["LIC-1"].ClientID)

	lines := db.linesOf("LIC-1")
	require.Len(t, lines, 2)
	require.Contains(t, lines, "LIC-1-A")
	require.Contains(t, lines, "LIC-1-B")
	assert.Equal(t, 2, lines["LIC-1-A"].Quantity)
	assert.True(t, lines["LIC-1-A"].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, db.commits)
}

func TestSaveTender_CreateDuplicateIsConflict(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-1", line("A", 2, "10"))))

	dup := newTender("LIC-1", line("B", 7, "9"))
	dup.ClientID = 2
	err := repo.SaveTender(ctx, model.SaveModeCreate, dup)
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, int64(1), db.committed.tenders["LIC-1"].ClientID)
	lines := db.linesOf("LIC-1")
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines["LIC-1-A"].Quantity)
	assert.Equal(t, 1, db.rollbacks)
}

func TestSaveTender_UpdateReplacesAllLines(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-1", line("C", 3, "2"))))
	require.NoError(t, repo.SaveTender(ctx, model.SaveModeUpdate, newTender("LIC-1", line("A", 2, "10"))))
	require.NoError(t, repo.SaveTender(ctx, model.SaveModeUpdate, newTender("LIC-1", line("B", 1, "5"))))

	lines := db.linesOf("LIC-1")
	require.Len(t, lines, 1)
	require.Contains(t, lines, "LIC-1-B")
	assert.Equal(t, 1, lines["LIC-1-B"].Quantity)
	assert.True(t, lines["LIC-1-B"].Price.Equal(decimal.NewFromInt(5)))
}

func TestSaveTender_UpdateChangesHeader(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-1", line("A", 1, "9"))))

	upd := newTender("LIC-1", line("A", 1, "9"))
	upd.ClientID = 2
	upd.DeliveryDate = date("2025-04-01")
	require.NoError(t, repo.SaveTender(ctx, model.SaveModeUpdate, upd))

	got := db.committed.tenders["LIC-1"]
	assert.Equal(t, int64(2), got.ClientID)
	assert.Equal(t, date("2025-04-01"), got.DeliveryDate)
}

func TestSaveTender_UpdateIsIdempotent(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-1", line("C", 3, "2"))))

	payload := newTender("LIC-1", line("A", 2, "10"), line("B", 4, "4.50"))

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeUpdate, payload))
	first := db.committed.clone()

	require.NoError(t, repo.SaveTender(ctx, model.SaveModeUpdate, payload))
	assert.Equal(t, first, db.committed)
}

func TestSaveTender_FailureMidLinesLeavesNoPartialState(t *testing.T) {
	lines := []model.OrderLine{
		line("A", 1, "10"),
		line("B", 1, "5"),
		line("UNKNOWN", 1, "5"),
		line("D", 1, "150"),
		line("E", 1, "25"),
	}

	t.Run("create", func(t *testing.T) {
		db := newFakeDB()
		repo := newTestRepo(db)

		err := repo.SaveTender(context.Background(), model.SaveModeCreate, newTender("LIC-9", lines...))
		require.ErrorIs(t, err, ErrInvalidReference)

		assert.NotContains(t, db.committed.tenders, "LIC-9")
		assert.Empty(t, db.committed.lines)
		assert.Equal(t, 1, db.rollbacks)
	})

	t.Run("update", func(t *testing.T) {
		db := newFakeDB()
		repo := newTestRepo(db)
		ctx := context.Background()

		require.NoError(t, repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-9", line("C", 3, "2"))))
		before := db.committed.clone()

		upd := newTender("LIC-9", lines...)
		upd.ClientID = 2
		err := repo.SaveTender(ctx, model.SaveModeUpdate, upd)
		require.ErrorIs(t, err, ErrInvalidReference)

		assert.Equal(t, before, db.committed)
	})
}

func TestSaveTender_UpdateUnknownTender(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	err := repo.SaveTender(context.Background(), model.SaveModeUpdate, newTender("NOPE", line("A", 1, "10")))
	require.ErrorIs(t, err, ErrTenderNotFound)
	assert.Empty(t, db.committed.tenders)
	assert.Equal(t, 1, db.rollbacks)
}

func TestSaveTender_UnknownClient(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	tender := newTender("LIC-1", line("A", 1, "10"))
	tender.ClientID = 42

	err := repo.SaveTender(context.Background(), model.SaveModeCreate, tender)
	require.ErrorIs(t, err, ErrInvalidReference)
	assert.Empty(t, db.committed.tenders)
}

func TestSaveTender_MarginViolationRollsBack(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	err := repo.SaveTender(context.Background(), model.SaveModeCreate,
		newTender("LIC-1", line("A", 1, "10"), line("D", 1, "100")))
	require.ErrorIs(t, err, ErrMarginViolation)

	assert.Empty(t, db.committed.tenders)
	assert.Empty(t, db.committed.lines)
}

func TestSaveTender_DuplicateSKUIsConflict(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	err := repo.SaveTender(context.Background(), model.SaveModeCreate,
		newTender("LIC-1", line("A", 1, "10"), line("A", 2, "11")))
	require.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, db.committed.lines)
}

func TestSaveTender_ConnectionLossIsUnavailable(t *testing.T) {
	connErr := &net.OpError{Op: "write", Net: "tcp", Err: errors.New("connection reset by peer")}

	t.Run("mid transaction", func(t *testing.T) {
		db := newFakeDB()
		db.failExecAt = 2
		db.failErr = connErr
		repo := newTestRepo(db)

		err := repo.SaveTender(context.Background(), model.SaveModeCreate,
			newTender("LIC-1", line("A", 1, "10"), line("B", 1, "5")))
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Empty(t, db.committed.tenders)
		assert.Empty(t, db.committed.lines)
		assert.Equal(t, 1, db.rollbacks)
	})

	t.Run("on commit", func(t *testing.T) {
		db := newFakeDB()
		db.commitErr = connErr
		repo := newTestRepo(db)

		err := repo.SaveTender(context.Background(), model.SaveModeCreate, newTender("LIC-1", line("A", 1, "10")))
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Empty(t, db.committed.tenders)
	})

	t.Run("on begin", func(t *testing.T) {
		db := newFakeDB()
		db.beginErr = connErr
		repo := newTestRepo(db)

		err := repo.SaveTender(context.Background(), model.SaveModeCreate, newTender("LIC-1", line("A", 1, "10")))
		require.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestSaveTender_RollbackSurvivesCanceledContext(t *testing.T) {
	db := newFakeDB()
	db.failExecAt = 1
	db.failErr = context.Canceled
	repo := newTestRepo(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.SaveTender(ctx, model.SaveModeCreate, newTender("LIC-1", line("A", 1, "10")))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, db.rollbacks)
}

func TestSaveTender_UnsupportedMode(t *testing.T) {
	db := newFakeDB()
	repo := newTestRepo(db)

	err := repo.SaveTender(context.Background(), model.SaveMode(0), newTender("LIC-1"))
	require.Error(t, err)
	assert.Equal(t, 1, db.rollbacks)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
}
