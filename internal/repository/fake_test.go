package repository

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type fakeTender struct {
	ClientID     int64
	CreationDate time.Time
	DeliveryDate time.Time
}

type fakeLine struct {
	TenderID string
	SKU      string
	Quantity int
	Price    decimal.Decimal
}

type fakeState struct {
	tenders map[string]fakeTender
	lines   map[string]fakeLine
}

func (s fakeState) clone() fakeState {
	return fakeState{
		tenders: maps.Clone(s.tenders),
		lines:   maps.Clone(s.lines),
	}
}

// fakeDB хранит зафиксированное состояние и выдаёт транзакции, работающие с его копией.
type fakeDB struct {
	committed fakeState
	clients   map[int64]bool
	products  map[string]decimal.Decimal

	// failExecAt задаёт порядковый номер Exec (с 1), на котором вернётся failErr.
	failExecAt int
	failErr    error
	commitErr  error
	beginErr   error

	execCount int
	rollbacks int
	commits   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		committed: fakeState{
			tenders: map[string]fakeTender{},
			lines:   map[string]fakeLine{},
		},
		clients: map[int64]bool{1: true, 2: true},
		products: map[string]decimal.Decimal{
			"A": decimal.RequireFromString("8"),
			"B": decimal.RequireFromString("4"),
			"C": decimal.RequireFromString("1.50"),
			"D": decimal.RequireFromString("100"),
			"E": decimal.RequireFromString("20"),
		},
	}
}

func (db *fakeDB) linesOf(tenderID string) map[string]fakeLine {
	res := map[string]fakeLine{}
	for id, l := range db.committed.lines {
		if l.TenderID == tenderID {
			res[id] = l
		}
	}
	return res
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return &fakeTx{db: db, state: db.committed.clone()}, nil
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("fakeDB.Exec not implemented")
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("fakeDB.Query not implemented")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("fakeDB.QueryRow not implemented")
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }

func (db *fakeDB) Close() {}

// fakeTx реализует только методы pgx.Tx, нужные SaveTender; остальные паникуют через nil-интерфейс.
type fakeTx struct {
	pgx.Tx

	db     *fakeDB
	state  fakeState
	closed bool
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "fake " + code}
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}

	tx.db.execCount++
	if tx.db.failExecAt == tx.db.execCount {
		return pgconn.CommandTag{}, tx.db.failErr
	}

	switch sql {
	case insertTenderSQL:
		id, clientID := args[0].(string), args[1].(int64)
		if _, ok := tx.state.tenders[id]; ok {
			return pgconn.CommandTag{}, pgError(pgerrcode.UniqueViolation)
		}
		if !tx.db.clients[clientID] {
			return pgconn.CommandTag{}, pgError(pgerrcode.ForeignKeyViolation)
		}
		tx.state.tenders[id] = fakeTender{ClientID: clientID, CreationDate: args[2].(time.Time), DeliveryDate: args[3].(time.Time)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case updateTenderSQL:
		id, clientID := args[0].(string), args[1].(int64)
		if _, ok := tx.state.tenders[id]; !ok {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		if !tx.db.clients[clientID] {
			return pgconn.CommandTag{}, pgError(pgerrcode.ForeignKeyViolation)
		}
		tx.state.tenders[id] = fakeTender{ClientID: clientID, CreationDate: args[2].(time.Time), DeliveryDate: args[3].(time.Time)}
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case deleteOrderLinesSQL:
		tenderID := args[0].(string)
		n := 0
		for id, l := range tx.state.lines {
			if l.TenderID == tenderID {
				delete(tx.state.lines, id)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil

	case insertOrderLineSQL:
		id, tenderID, sku := args[0].(string), args[1].(string), args[2].(string)
		if _, ok := tx.state.lines[id]; ok {
			return pgconn.CommandTag{}, pgError(pgerrcode.UniqueViolation)
		}
		if _, ok := tx.state.tenders[tenderID]; !ok {
			return pgconn.CommandTag{}, pgError(pgerrcode.ForeignKeyViolation)
		}
		if _, ok := tx.db.products[sku]; !ok {
			return pgconn.CommandTag{}, pgError(pgerrcode.ForeignKeyViolation)
		}
		tx.state.lines[id] = fakeLine{TenderID: tenderID, SKU: sku, Quantity: args[3].(int), Price: args[4].(decimal.Decimal)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}

	return pgconn.CommandTag{}, fmt.Errorf("fakeTx: unexpected statement %q", sql)
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if sql != lockProductCostSQL {
		return fakeRow{err: fmt.Errorf("fakeTx: unexpected query %q", sql)}
	}
	cost, ok := tx.db.products[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{cost: cost}
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	tx.db.committed = tx.state
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.rollbacks++
	return nil
}

type fakeRow struct {
	cost decimal.Decimal
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*decimal.Decimal) = r.cost
	return nil
}
