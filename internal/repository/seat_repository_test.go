package repository

import (
    "context"
    "database/sql"
    "database/sql/driver"
    "errors"
    "io"
    "strings"
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// fakeInventoryDB answers the handful of statements MaterializeSeats
// issues and records everything it executes, so the duplicate guard and
// insert batching can be verified without a MySQL server.
type fakeInventoryDB struct {
    mu            sync.Mutex
    existingSeats int64   // answer to the COUNT(*) guard query
    showtimeGone  bool    // make the counter UPDATE match zero rows
    insertArgs    []int   // placeholder count of each seat INSERT
    counterSets   []int64 // values written to showtimes.available_seats
    committed     bool
    rolledBack    bool
}

func newFakeInventoryConn(f *fakeInventoryDB) *sql.DB {
    return sql.OpenDB(fakeConnector{db: f})
}

type fakeConnector struct{ db *fakeInventoryDB }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: c.db}, nil }
func (c fakeConnector) Driver() driver.Driver                        { return fakeDrv{} }

type fakeDrv struct{}

func (fakeDrv) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

type fakeConn struct{ db *fakeInventoryDB }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not prepared") }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return &fakeTx{db: c.db}, nil }

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
    return &fakeTx{db: c.db}, nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
    c.db.mu.Lock()
    defer c.db.mu.Unlock()
    if strings.Contains(query, "COUNT(*) FROM seats") {
        return &fakeRows{val: c.db.existingSeats}, nil
    }
    return nil, errors.New("unexpected query: " + query)
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
    c.db.mu.Lock()
    defer c.db.mu.Unlock()
    switch {
    case strings.HasPrefix(query, "INSERT INTO seats"):
        c.db.insertArgs = append(c.db.insertArgs, len(args))
        return driver.RowsAffected(int64(len(args) / 4)), nil
    case strings.Contains(query, "UPDATE showtimes"):
        if c.db.showtimeGone {
            return driver.RowsAffected(0), nil
        }
        c.db.counterSets = append(c.db.counterSets, args[0].Value.(int64))
        return driver.RowsAffected(1), nil
    }
    return nil, errors.New("unexpected exec: " + query)
}

type fakeRows struct {
    val  int64
    done bool
}

func (r *fakeRows) Columns() []string { return []string{"count"} }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
    if r.done {
        return io.EOF
    }
    r.done = true
    dest[0] = r.val
    return nil
}

type fakeTx struct{ db *fakeInventoryDB }

func (t *fakeTx) Commit() error {
    t.db.mu.Lock()
    defer t.db.mu.Unlock()
    t.db.committed = true
    return nil
}

func (t *fakeTx) Rollback() error {
    t.db.mu.Lock()
    defer t.db.mu.Unlock()
    t.db.rolledBack = true
    return nil
}

func TestMaterializeSeatsCreatesFullGrid(t *testing.T) {
    fake := &fakeInventoryDB{}
    repo := NewSeatRepo(newFakeInventoryConn(fake))
    hall := &model.Hall{ID: 1, SeatRows: 3, SeatCols: 4}

    created, err := repo.MaterializeSeats(context.Background(), hall, 9)
    require.NoError(t, err)
    assert.Equal(t, 12, created)
    require.Len(t, fake.insertArgs, 1)
    assert.Equal(t, 12*4, fake.insertArgs[0])
    assert.Equal(t, []int64{12}, fake.counterSets)
    assert.True(t, fake.committed)
}

func TestMaterializeSeatsRunsOnlyOnce(t *testing.T) {
    fake := &fakeInventoryDB{existingSeats: 12}
    repo := NewSeatRepo(newFakeInventoryConn(fake))
    hall := &model.Hall{ID: 1, SeatRows: 3, SeatCols: 4}

    _, err := repo.MaterializeSeats(context.Background(), hall, 9)
    assert.ErrorIs(t, err, ErrDuplicateInventory)
    // The first run's inventory and counter must be untouched.
    assert.Empty(t, fake.insertArgs)
    assert.Empty(t, fake.counterSets)
    assert.False(t, fake.committed)
    assert.True(t, fake.rolledBack)
}

func TestMaterializeSeatsBatchesLargeHalls(t *testing.T) {
    fake := &fakeInventoryDB{}
    repo := NewSeatRepo(newFakeInventoryConn(fake))
    // 20000 seats cannot fit in a single statement's placeholders.
    hall := &model.Hall{ID: 2, SeatRows: 200, SeatCols: 100}

    created, err := repo.MaterializeSeats(context.Background(), hall, 5)
    require.NoError(t, err)
    assert.Equal(t, 20000, created)
    require.Greater(t, len(fake.insertArgs), 1)
    totalArgs := 0
    for _, n := range fake.insertArgs {
        assert.LessOrEqual(t, n, seatInsertBatch*4)
        totalArgs += n
    }
    assert.Equal(t, 20000*4, totalArgs)
    assert.Equal(t, []int64{20000}, fake.counterSets)
    assert.True(t, fake.committed)
}

func TestSeatInsertBatchUnderPlaceholderLimit(t *testing.T) {
    // MySQL prepared statements allow at most 65535 placeholders.
    assert.Less(t, seatInsertBatch*4, 65535)
}

func TestMaterializeSeatsRejectsBadLayout(t *testing.T) {
    repo := NewSeatRepo(newFakeInventoryConn(&fakeInventoryDB{}))

    _, err := repo.MaterializeSeats(context.Background(), nil, 9)
    assert.ErrorIs(t, err, ErrInvalidLayout)

    _, err = repo.MaterializeSeats(context.Background(), &model.Hall{ID: 1, SeatRows: 0, SeatCols: 4}, 9)
    assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestMaterializeSeatsMissingShowtime(t *testing.T) {
    fake := &fakeInventoryDB{showtimeGone: true}
    repo := NewSeatRepo(newFakeInventoryConn(fake))

    _, err := repo.MaterializeSeats(context.Background(), &model.Hall{ID: 1, SeatRows: 2, SeatCols: 2}, 9)
    assert.ErrorIs(t, err, ErrShowtimeNotFound)
    assert.False(t, fake.committed)
    assert.True(t, fake.rolledBack)
}
